package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
)

type RegisterFeedbackRequest struct {
	Category string `json:"category" binding:"required"`
	StoreID  string `json:"store_id"`
	MarketID string `json:"market_id"`
}

type ChangeCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type FeedbackResponse struct {
	ID              uuid.UUID  `json:"id"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	EscalatedAt     *time.Time `json:"escalated_at"`
	EscalatedBy     *string    `json:"escalated_by"`
	SLADeadline     *time.Time `json:"sla_deadline"`
	AutoEscalated   bool       `json:"auto_escalated"`
	ResolutionNotes *string    `json:"resolution_notes"`
	StoreID         string     `json:"store_id,omitempty"`
	MarketID        string     `json:"market_id,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ApprovalResponse struct {
	ApproverID uuid.UUID `json:"approver_id"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// CaseSnapshotResponse содержит обращение вместе с состоянием кворума.
type CaseSnapshotResponse struct {
	Feedback                    FeedbackResponse   `json:"feedback"`
	Approvals                   []ApprovalResponse `json:"approvals"`
	MissingRoles                []string           `json:"missing_roles"`
	PendingLabel                string             `json:"pending_label,omitempty"`
	QuorumComplete              bool               `json:"quorum_complete"`
	ArchiveConfirmationRequired bool               `json:"archive_confirmation_required"`
}

type ApproveResponse struct {
	Recorded                    bool     `json:"recorded"`
	QuorumComplete              bool     `json:"quorum_complete"`
	MissingRoles                []string `json:"missing_roles"`
	PendingLabel                string   `json:"pending_label,omitempty"`
	ArchiveConfirmationRequired bool     `json:"archive_confirmation_required"`
}

type EscalationLogResponse struct {
	ID           uuid.UUID `json:"id"`
	Actor        string    `json:"actor"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	FromPriority string    `json:"from_priority"`
	ToPriority   string    `json:"to_priority"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToFeedbackResponse(fc entity.FeedbackCase) FeedbackResponse {
	return FeedbackResponse{
		ID:              fc.ID,
		Category:        fc.Category,
		Priority:        fc.Priority.String(),
		Status:          fc.Status.String(),
		EscalatedAt:     fc.EscalatedAt,
		EscalatedBy:     fc.EscalatedBy,
		SLADeadline:     fc.SLADeadline,
		AutoEscalated:   fc.AutoEscalated,
		ResolutionNotes: fc.ResolutionNotes,
		StoreID:         fc.StoreID,
		MarketID:        fc.MarketID,
		Version:         fc.Version,
		CreatedAt:       fc.CreatedAt,
		UpdatedAt:       fc.UpdatedAt,
	}
}

func ToCaseSnapshotResponse(s *escalation.CaseSnapshot) CaseSnapshotResponse {
	approvals := make([]ApprovalResponse, 0, len(s.Approvals))
	for _, a := range s.Approvals {
		approvals = append(approvals, ApprovalResponse{
			ApproverID: a.ApproverID,
			Role:       a.Role.String(),
			CreatedAt:  a.CreatedAt,
		})
	}

	return CaseSnapshotResponse{
		Feedback:                    ToFeedbackResponse(s.Case),
		Approvals:                   approvals,
		MissingRoles:                roleStrings(s.MissingRoles),
		PendingLabel:                pendingLabel(s.MissingRoles),
		QuorumComplete:              s.QuorumComplete,
		ArchiveConfirmationRequired: s.ArchiveConfirmationRequired,
	}
}

func ToApproveResponse(r *escalation.ApprovalResult) ApproveResponse {
	return ApproveResponse{
		Recorded:                    r.Recorded,
		QuorumComplete:              r.QuorumComplete,
		MissingRoles:                roleStrings(r.MissingRoles),
		PendingLabel:                pendingLabel(r.MissingRoles),
		ArchiveConfirmationRequired: r.ArchiveConfirmationRequired,
	}
}

func ToEscalationLogResponses(entries []entity.EscalationLogEntry) []EscalationLogResponse {
	out := make([]EscalationLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EscalationLogResponse{
			ID:           e.ID,
			Actor:        e.Actor,
			FromStatus:   e.FromStatus.String(),
			ToStatus:     e.ToStatus.String(),
			FromPriority: e.FromPriority.String(),
			ToPriority:   e.ToPriority.String(),
			Reason:       string(e.Reason),
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}

func roleStrings(roles []valueobject.ApproverRole) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}

func pendingLabel(roles []valueobject.ApproverRole) string {
	if len(roles) == 0 {
		return ""
	}
	return "pending: " + valueobject.JoinRoleLabels(roles)
}
