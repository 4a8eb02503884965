package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

type MarkViewedInput struct {
	CaseID uuid.UUID
	Actor  string
	Now    time.Time
}

type MarkViewedUseCase struct {
	feedbackRepo repository.FeedbackRepository
	tracker      *QuorumTracker
}

func NewMarkViewedUseCase(feedbackRepo repository.FeedbackRepository, tracker *QuorumTracker) *MarkViewedUseCase {
	return &MarkViewedUseCase{feedbackRepo: feedbackRepo, tracker: tracker}
}

// Execute идемпотентен: повторный просмотр и гонка двух зрителей не дают второй записи.
func (uc *MarkViewedUseCase) Execute(ctx context.Context, input MarkViewedInput) (*CaseSnapshot, error) {
	fc, err := loadCase(ctx, uc.feedbackRepo, input.CaseID)
	if err != nil {
		return nil, err
	}

	now := requireNow(input.Now)
	if t, changed := fc.MarkViewed(now); changed {
		entry := entity.NewEscalationLogEntry(fc.ID, input.Actor, t, now)
		if err := uc.feedbackRepo.Update(ctx, fc, entry); err != nil {
			if !apperror.IsConflict(err) {
				return nil, storageError(err, "failed to mark feedback as viewed")
			}
			fresh, loadErr := loadCase(ctx, uc.feedbackRepo, input.CaseID)
			if loadErr != nil {
				return nil, loadErr
			}
			if fresh.Status == valueobject.CaseStatusUnopened {
				return nil, err
			}
			fc = fresh
		}
	}

	approvals, err := uc.tracker.Approvals(ctx, fc.ID)
	if err != nil {
		return nil, err
	}
	return newSnapshot(fc, approvals), nil
}
