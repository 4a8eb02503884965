package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

type OnApproveInput struct {
	CaseID     uuid.UUID
	ApproverID uuid.UUID
	Role       string
	Now        time.Time
}

type ApprovalResult struct {
	Recorded                    bool
	QuorumComplete              bool
	MissingRoles                []valueobject.ApproverRole
	ArchiveConfirmationRequired bool
}

// OnApproveUseCase никогда не архивирует обращение сам: полный кворум при
// неизменном critical требует явного ConfirmArchive.
type OnApproveUseCase struct {
	feedbackRepo repository.FeedbackRepository
	tracker      *QuorumTracker
	notifier     notification.Dispatcher
}

func NewOnApproveUseCase(feedbackRepo repository.FeedbackRepository, tracker *QuorumTracker, notifier notification.Dispatcher) *OnApproveUseCase {
	return &OnApproveUseCase{
		feedbackRepo: feedbackRepo,
		tracker:      tracker,
		notifier:     notifier,
	}
}

func (uc *OnApproveUseCase) Execute(ctx context.Context, input OnApproveInput) (*ApprovalResult, error) {
	role, err := valueobject.ParseApproverRole(input.Role)
	if err != nil {
		return nil, err
	}

	var fc *entity.FeedbackCase
	recorded, err := withConflictRetry(func() (RecordApprovalResult, error) {
		var attemptErr error
		fc, attemptErr = uc.loadApprovable(ctx, input.CaseID)
		if attemptErr != nil {
			return RecordApprovalResult{}, attemptErr
		}

		// Согласования читаются после обращения: запись пройдёт, только если
		// между чтением и вставкой версия обращения не менялась.
		before, attemptErr := uc.tracker.Approvals(ctx, fc.ID)
		if attemptErr != nil {
			return RecordApprovalResult{}, attemptErr
		}
		return uc.tracker.RecordApproval(ctx, fc, before, input.ApproverID, string(role), requireNow(input.Now))
	})
	if err != nil {
		return nil, err
	}

	quorum := entity.NewQuorum(recorded.Approvals)
	result := &ApprovalResult{
		Recorded:                    !recorded.AlreadyApproved,
		QuorumComplete:              quorum.IsComplete(),
		MissingRoles:                quorum.MissingRoles(),
		ArchiveConfirmationRequired: fc.AwaitsArchiveConfirmation(quorum.IsComplete()),
	}

	if recorded.AlreadyApproved {
		return result, nil
	}

	logger.WithFields(logrus.Fields{
		"case_id":         fc.ID,
		"approver":        input.ApproverID,
		"role":            role,
		"approved_roles":  quorum.PresentRoles(),
		"quorum_complete": result.QuorumComplete,
	}).Info("approval recorded")

	data := notificationContext(fc, input.ApproverID.String())
	data.Role = role
	data.MissingRoles = result.MissingRoles
	uc.notifier.Notify(ctx, notification.KindApprovalRecorded, fc.ID, data)

	if recorded.CompletedQuorum {
		uc.notifier.Notify(ctx, notification.KindQuorumComplete, fc.ID, data)
	}

	return result, nil
}

func (uc *OnApproveUseCase) loadApprovable(ctx context.Context, caseID uuid.UUID) (*entity.FeedbackCase, error) {
	fc, err := loadCase(ctx, uc.feedbackRepo, caseID)
	if err != nil {
		return nil, err
	}
	if fc.IsClosed() {
		return nil, apperror.ErrCaseClosed
	}
	if !fc.Priority.IsCritical() {
		return nil, apperror.ErrCaseNotCritical
	}
	return fc, nil
}
