package valueobject

import (
	"strings"

	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

type Priority string

const (
	PriorityPraise   Priority = "praise"
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityPraise, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func (p Priority) IsCritical() bool {
	return p == PriorityCritical
}

func (p Priority) String() string {
	return string(p)
}

func NewPriority(priority string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(priority)))
	if !p.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid priority: "+priority)
	}
	return p, nil
}
