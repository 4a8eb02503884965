package valueobject

import (
	"strings"

	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

type CaseStatus string

const (
	CaseStatusUnopened   CaseStatus = "unopened"
	CaseStatusOpened     CaseStatus = "opened"
	CaseStatusProcessing CaseStatus = "processing"
	CaseStatusResponded  CaseStatus = "responded"
	CaseStatusEscalated  CaseStatus = "escalated"
	CaseStatusResolved   CaseStatus = "resolved"
	CaseStatusCancelled  CaseStatus = "cancelled"
)

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusUnopened:   {CaseStatusOpened, CaseStatusEscalated, CaseStatusCancelled},
	CaseStatusOpened:     {CaseStatusProcessing, CaseStatusResponded, CaseStatusEscalated, CaseStatusCancelled},
	CaseStatusProcessing: {CaseStatusResolved, CaseStatusEscalated, CaseStatusCancelled},
	CaseStatusResponded:  {CaseStatusResolved, CaseStatusEscalated, CaseStatusCancelled},
	CaseStatusEscalated:  {CaseStatusResolved, CaseStatusOpened, CaseStatusCancelled},
	CaseStatusResolved:   {},
	CaseStatusCancelled:  {},
}

func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusUnopened, CaseStatusOpened, CaseStatusProcessing, CaseStatusResponded,
		CaseStatusEscalated, CaseStatusResolved, CaseStatusCancelled:
		return true
	}
	return false
}

func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusResolved || s == CaseStatusCancelled
}

func (s CaseStatus) CanTransitionTo(newStatus CaseStatus) bool {
	allowed, ok := caseTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s CaseStatus) String() string {
	return string(s)
}

func NewCaseStatus(status string) (CaseStatus, error) {
	s := CaseStatus(strings.ToLower(strings.TrimSpace(status)))
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid resolution status: "+status)
	}
	return s, nil
}
