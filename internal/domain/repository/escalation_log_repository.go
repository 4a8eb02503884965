package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
)

type EscalationLogRepository interface {
	ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.EscalationLogEntry, error)
}
