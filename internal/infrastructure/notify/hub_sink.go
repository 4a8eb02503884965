package notify

import (
	"context"

	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

// Broadcaster описывает часть ws.Hub, нужную для рассылки по ролям.
type Broadcaster interface {
	BroadcastToRoles(ctx context.Context, roles []string, event string, data any) error
}

// HubSink отправляет события подключённым согласующим через WebSocket.
type HubSink struct {
	hub Broadcaster
}

func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Send(ctx context.Context, n notification.Notification) error {
	return s.hub.BroadcastToRoles(ctx, recipients(n), string(n.Kind), n)
}

// recipients: о записанном согласовании узнают роли, чьё согласование ещё нужно,
// остальные события получают все четыре роли.
func recipients(n notification.Notification) []string {
	roles := valueobject.RequiredRoles()
	if n.Kind == notification.KindApprovalRecorded && len(n.Context.MissingRoles) > 0 {
		roles = n.Context.MissingRoles
	}

	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}
