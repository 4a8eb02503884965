package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
)

// LogSink пишет каждое уведомление в структурированный лог.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, n notification.Notification) error {
	logger.WithFields(logrus.Fields{
		"kind":          n.Kind,
		"case_id":       n.CaseID,
		"category":      n.Context.Category,
		"priority":      n.Context.Priority,
		"status":        n.Context.Status,
		"actor":         n.Context.Actor,
		"missing_roles": n.Context.MissingRoles,
	}).Info("notification")
	return nil
}
