package escalation

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

func loadCase(ctx context.Context, feedbackRepo repository.FeedbackRepository, id uuid.UUID) (*entity.FeedbackCase, error) {
	if err := requireCaseID(id); err != nil {
		return nil, err
	}

	fc, err := feedbackRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "failed to load feedback case")
	}
	if fc == nil {
		return nil, apperror.ErrCaseNotFound
	}
	return fc, nil
}

type GetCaseUseCase struct {
	feedbackRepo repository.FeedbackRepository
	tracker      *QuorumTracker
}

func NewGetCaseUseCase(feedbackRepo repository.FeedbackRepository, tracker *QuorumTracker) *GetCaseUseCase {
	return &GetCaseUseCase{feedbackRepo: feedbackRepo, tracker: tracker}
}

func (uc *GetCaseUseCase) Execute(ctx context.Context, caseID uuid.UUID) (*CaseSnapshot, error) {
	fc, err := loadCase(ctx, uc.feedbackRepo, caseID)
	if err != nil {
		return nil, err
	}

	approvals, err := uc.tracker.Approvals(ctx, caseID)
	if err != nil {
		return nil, err
	}

	return newSnapshot(fc, approvals), nil
}

type ListEscalationLogUseCase struct {
	feedbackRepo repository.FeedbackRepository
	logRepo      repository.EscalationLogRepository
}

func NewListEscalationLogUseCase(feedbackRepo repository.FeedbackRepository, logRepo repository.EscalationLogRepository) *ListEscalationLogUseCase {
	return &ListEscalationLogUseCase{feedbackRepo: feedbackRepo, logRepo: logRepo}
}

func (uc *ListEscalationLogUseCase) Execute(ctx context.Context, caseID uuid.UUID) ([]entity.EscalationLogEntry, error) {
	if _, err := loadCase(ctx, uc.feedbackRepo, caseID); err != nil {
		return nil, err
	}

	entries, err := uc.logRepo.ListByFeedback(ctx, caseID)
	if err != nil {
		return nil, storageError(err, "failed to load escalation log")
	}
	return entries, nil
}
