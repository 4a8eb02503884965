package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
)

type ApprovalRepository interface {
	// InsertIgnoreDuplicate вставляет запись; при существующей паре
	// (feedback_id, approver_user_id) возвращает inserted=false без ошибки.
	// Новая запись в той же транзакции поднимает версию обращения при
	// совпадении с fc.Version и дописывает entry, если она передана. При
	// расхождении версий ничего не сохраняется и возвращается
	// apperror.ErrVersionConflict.
	InsertIgnoreDuplicate(ctx context.Context, fc *entity.FeedbackCase, record *entity.ApprovalRecord, entry *entity.EscalationLogEntry) (inserted bool, err error)
	ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.ApprovalRecord, error)
}
