package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

type ApprovalRecord struct {
	ID         uuid.UUID
	FeedbackID uuid.UUID
	ApproverID uuid.UUID
	Role       valueobject.ApproverRole
	CreatedAt  time.Time
}

func NewApprovalRecord(feedbackID, approverID uuid.UUID, role string, now time.Time) (*ApprovalRecord, error) {
	if approverID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "approver identity is required")
	}

	r, err := valueobject.ParseApproverRole(role)
	if err != nil {
		return nil, err
	}

	return &ApprovalRecord{
		ID:         uuid.New(),
		FeedbackID: feedbackID,
		ApproverID: approverID,
		Role:       r,
		CreatedAt:  now,
	}, nil
}

// Quorum считает кворум по множеству различных ролей, а не по числу записей.
type Quorum struct {
	present map[valueobject.ApproverRole]struct{}
}

func NewQuorum(records []ApprovalRecord) Quorum {
	q := Quorum{present: make(map[valueobject.ApproverRole]struct{}, len(records))}
	for _, rec := range records {
		if rec.Role.IsValid() {
			q.present[rec.Role] = struct{}{}
		}
	}
	return q
}

func (q Quorum) IsComplete() bool {
	return len(q.MissingRoles()) == 0
}

func (q Quorum) Has(role valueobject.ApproverRole) bool {
	_, ok := q.present[role]
	return ok
}

func (q Quorum) MissingRoles() []valueobject.ApproverRole {
	missing := make([]valueobject.ApproverRole, 0, 4)
	for _, r := range valueobject.RequiredRoles() {
		if !q.Has(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

func (q Quorum) PresentRoles() []valueobject.ApproverRole {
	present := make([]valueobject.ApproverRole, 0, len(q.present))
	for _, r := range valueobject.RequiredRoles() {
		if q.Has(r) {
			present = append(present, r)
		}
	}
	return present
}
