package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

// EscalationLogEntry хранит неизменяемую запись аудита о переходе обращения.
type EscalationLogEntry struct {
	ID           uuid.UUID
	FeedbackID   uuid.UUID
	Actor        string
	FromStatus   valueobject.CaseStatus
	ToStatus     valueobject.CaseStatus
	FromPriority valueobject.Priority
	ToPriority   valueobject.Priority
	Reason       TransitionReason
	CreatedAt    time.Time
}

func NewEscalationLogEntry(feedbackID uuid.UUID, actor string, t Transition, now time.Time) *EscalationLogEntry {
	if actor == "" {
		actor = SystemActor
	}
	return &EscalationLogEntry{
		ID:           uuid.New(),
		FeedbackID:   feedbackID,
		Actor:        actor,
		FromStatus:   t.FromStatus,
		ToStatus:     t.ToStatus,
		FromPriority: t.FromPriority,
		ToPriority:   t.ToPriority,
		Reason:       t.Reason,
		CreatedAt:    now,
	}
}
