package policy

import (
	"time"

	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

// CriticalResolutionWindow задаёт срок, за который критичное обращение должно быть закрыто.
const CriticalResolutionWindow = 24 * time.Hour

// ComputeDeadline возвращает SLA-дедлайн; он есть только у critical.
// Время передаётся снаружи, глобальные часы не читаются.
func ComputeDeadline(priority valueobject.Priority, now time.Time) *time.Time {
	if priority != valueobject.PriorityCritical {
		return nil
	}
	deadline := now.Add(CriticalResolutionWindow)
	return &deadline
}
