package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
)

// FeedbackRepository хранит обращения. Update обязан применять изменения
// только если версия в хранилище совпадает с fc.Version, и атомарно
// дописывать запись аудита, если она передана. После успешной записи
// fc.Version увеличивается на единицу; при расхождении версий возвращается
// apperror.ErrVersionConflict.
type FeedbackRepository interface {
	Create(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error
	Update(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FeedbackCase, error)
}
