package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/goroutine"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
)

// Sink доставляет уведомление в один канал (лог, Slack, WebSocket).
type Sink interface {
	Name() string
	Send(ctx context.Context, n notification.Notification) error
}

// Dispatcher рассылает уведомления по всем каналам в фоне.
// Ошибки доставки только логируются и никогда не возвращаются вызывающему.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
	pending atomic.Int64
}

var _ notification.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

func (d *Dispatcher) Notify(ctx context.Context, kind notification.Kind, caseID uuid.UUID, data notification.Context) {
	if !kind.IsValid() {
		logger.WithFields(logrus.Fields{"kind": kind, "case_id": caseID}).Error("unknown notification kind dropped")
		return
	}

	n := notification.Notification{Kind: kind, CaseID: caseID, Context: data}
	// Запрос уже завершён к моменту доставки, поэтому отмена родителя не учитывается.
	base := context.WithoutCancel(ctx)

	for _, sink := range d.sinks {
		sink := sink
		d.wg.Add(1)
		d.pending.Add(1)
		goroutine.SafeGo(func() {
			defer d.wg.Done()
			defer d.pending.Add(-1)

			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := sink.Send(sendCtx, n); err != nil {
				logger.WithFields(logrus.Fields{
					"sink":    sink.Name(),
					"kind":    kind,
					"case_id": caseID,
					"error":   err,
				}).Warn("notification delivery failed")
			}
		})
	}
}

// Pending возвращает число отправок, которые ещё не завершились.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// Wait дожидается отправок, начатых до вызова. Используется при остановке сервера.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
