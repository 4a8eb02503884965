package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

type Kind string

const (
	KindCriticalEscalated Kind = "critical_escalated"
	KindQuorumComplete    Kind = "quorum_complete"
	KindCaseResolved      Kind = "case_resolved"
	KindApprovalRecorded  Kind = "approval_recorded"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindCriticalEscalated, KindQuorumComplete, KindCaseResolved, KindApprovalRecorded:
		return true
	}
	return false
}

// Context содержит данные, которые получатель уведомления видит вместе с событием.
type Context struct {
	Category        string                     `json:"category"`
	Priority        valueobject.Priority       `json:"priority"`
	Status          valueobject.CaseStatus     `json:"status"`
	StoreID         string                     `json:"store_id,omitempty"`
	MarketID        string                     `json:"market_id,omitempty"`
	Actor           string                     `json:"actor,omitempty"`
	Role            valueobject.ApproverRole   `json:"role,omitempty"`
	MissingRoles    []valueobject.ApproverRole `json:"missing_roles,omitempty"`
	SLADeadline     *time.Time                 `json:"sla_deadline,omitempty"`
	ResolutionNotes string                     `json:"resolution_notes,omitempty"`
}

type Notification struct {
	Kind    Kind      `json:"kind"`
	CaseID  uuid.UUID `json:"case_id"`
	Context Context   `json:"context"`
}

// Dispatcher принимает запросы на уведомление людей.
// Notify не блокирует вызывающего и не возвращает ошибок: доставка,
// повторы и логирование сбоев остаются на реализации.
type Dispatcher interface {
	Notify(ctx context.Context, kind Kind, caseID uuid.UUID, data Context)
}
