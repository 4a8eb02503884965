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

type OnCategoryChangedInput struct {
	CaseID   uuid.UUID
	Category string
	Actor    string
	Now      time.Time
}

type OnCategoryChangedUseCase struct {
	feedbackRepo repository.FeedbackRepository
	tracker      *QuorumTracker
	notifier     notification.Dispatcher
}

func NewOnCategoryChangedUseCase(feedbackRepo repository.FeedbackRepository, tracker *QuorumTracker, notifier notification.Dispatcher) *OnCategoryChangedUseCase {
	return &OnCategoryChangedUseCase{
		feedbackRepo: feedbackRepo,
		tracker:      tracker,
		notifier:     notifier,
	}
}

func (uc *OnCategoryChangedUseCase) Execute(ctx context.Context, input OnCategoryChangedInput) (*CaseSnapshot, error) {
	out, err := withConflictRetry(func() (writeOutcome, error) {
		return uc.apply(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	fc, t := out.fc, out.transition
	if t.Changed() {
		logger.WithFields(logrus.Fields{
			"case_id":       fc.ID,
			"actor":         input.Actor,
			"from_status":   t.FromStatus,
			"to_status":     t.ToStatus,
			"from_priority": t.FromPriority,
			"to_priority":   t.ToPriority,
			"reason":        t.Reason,
		}).Info("feedback reclassified")
	}

	switch {
	case t.EnteredEscalated():
		uc.notifier.Notify(ctx, notification.KindCriticalEscalated, fc.ID, notificationContext(fc, input.Actor))
	case t.EnteredResolved():
		uc.notifier.Notify(ctx, notification.KindCaseResolved, fc.ID, notificationContext(fc, input.Actor))
	}

	return newSnapshot(fc, out.approvals), nil
}

// apply выполняет одну попытку: кворум считается по строкам, прочитанным после
// обращения, а новое согласование между чтением и записью даёт конфликт версий.
func (uc *OnCategoryChangedUseCase) apply(ctx context.Context, input OnCategoryChangedInput) (writeOutcome, error) {
	fc, err := loadCase(ctx, uc.feedbackRepo, input.CaseID)
	if err != nil {
		return writeOutcome{}, err
	}

	complete, err := uc.tracker.IsQuorumComplete(ctx, fc.ID)
	if err != nil {
		return writeOutcome{}, err
	}

	now := requireNow(input.Now)
	previousCategory := fc.Category

	t, err := fc.ApplyCategory(input.Category, input.Actor, complete, now)
	if err != nil {
		return writeOutcome{}, err
	}

	approvals, err := uc.tracker.Approvals(ctx, fc.ID)
	if err != nil {
		return writeOutcome{}, err
	}

	out := writeOutcome{fc: fc, approvals: approvals, transition: t}
	if !t.Changed() && fc.Category == previousCategory {
		return out, nil
	}

	var entry *entity.EscalationLogEntry
	if t.Changed() {
		entry = entity.NewEscalationLogEntry(fc.ID, input.Actor, t, now)
	}

	if err := uc.feedbackRepo.Update(ctx, fc, entry); err != nil {
		return writeOutcome{}, storageError(err, "failed to update feedback case")
	}
	return out, nil
}
