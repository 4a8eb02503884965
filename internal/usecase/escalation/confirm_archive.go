package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
)

type ConfirmArchiveInput struct {
	CaseID uuid.UUID
	Actor  string
	Now    time.Time
}

type ConfirmArchiveUseCase struct {
	feedbackRepo repository.FeedbackRepository
	tracker      *QuorumTracker
	notifier     notification.Dispatcher
}

func NewConfirmArchiveUseCase(feedbackRepo repository.FeedbackRepository, tracker *QuorumTracker, notifier notification.Dispatcher) *ConfirmArchiveUseCase {
	return &ConfirmArchiveUseCase{
		feedbackRepo: feedbackRepo,
		tracker:      tracker,
		notifier:     notifier,
	}
}

func (uc *ConfirmArchiveUseCase) Execute(ctx context.Context, input ConfirmArchiveInput) (*CaseSnapshot, error) {
	out, err := withConflictRetry(func() (writeOutcome, error) {
		return uc.archive(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	if out.transition.Changed() {
		logger.WithFields(logrus.Fields{
			"case_id": out.fc.ID,
			"actor":   input.Actor,
		}).Info("feedback archived")

		uc.notifier.Notify(ctx, notification.KindCaseResolved, out.fc.ID, notificationContext(out.fc, input.Actor))
	}

	return newSnapshot(out.fc, out.approvals), nil
}

func (uc *ConfirmArchiveUseCase) archive(ctx context.Context, input ConfirmArchiveInput) (writeOutcome, error) {
	fc, err := loadCase(ctx, uc.feedbackRepo, input.CaseID)
	if err != nil {
		return writeOutcome{}, err
	}

	missing, err := uc.tracker.MissingRoles(ctx, fc.ID)
	if err != nil {
		return writeOutcome{}, err
	}

	now := requireNow(input.Now)
	t, err := fc.ConfirmArchive(input.Actor, len(missing) == 0, missing, now)
	if err != nil {
		return writeOutcome{}, err
	}

	approvals, err := uc.tracker.Approvals(ctx, fc.ID)
	if err != nil {
		return writeOutcome{}, err
	}

	out := writeOutcome{fc: fc, approvals: approvals, transition: t}
	if !t.Changed() {
		return out, nil
	}

	entry := entity.NewEscalationLogEntry(fc.ID, input.Actor, t, now)
	if err := uc.feedbackRepo.Update(ctx, fc, entry); err != nil {
		return writeOutcome{}, storageError(err, "failed to archive feedback case")
	}
	return out, nil
}
