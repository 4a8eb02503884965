package policy

import (
	"strings"

	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

var categoryPriorities = map[string]valueobject.Priority{
	"rude service":        valueobject.PriorityCritical,
	"out of product":      valueobject.PriorityCritical,
	"food safety":         valueobject.PriorityCritical,
	"sandwich made wrong": valueobject.PriorityHigh,
	"missing item":        valueobject.PriorityHigh,
	"cleanliness":         valueobject.PriorityHigh,
	"slow service":        valueobject.PriorityMedium,
	"wrong order":         valueobject.PriorityMedium,
	"product issue":       valueobject.PriorityLow,
	"other":               valueobject.PriorityLow,
	"praise":              valueobject.PriorityPraise,
}

// ClassifyPriority сопоставляет категорию жалобы с приоритетом.
// Неизвестная категория получает low: обращение не должно теряться.
func ClassifyPriority(category string) valueobject.Priority {
	if p, ok := categoryPriorities[normalizeCategory(category)]; ok {
		return p
	}
	return valueobject.PriorityLow
}

func normalizeCategory(category string) string {
	return strings.Join(strings.Fields(strings.ToLower(category)), " ")
}
