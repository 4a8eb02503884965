package escalation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
)

type RegisterFeedbackInput struct {
	Category string
	StoreID  string
	MarketID string
	Actor    string
	Now      time.Time
}

// RegisterFeedbackUseCase создаёт обращения, других путей создания нет:
// категория классифицируется сразу, critical эскалируется при рождении.
type RegisterFeedbackUseCase struct {
	feedbackRepo repository.FeedbackRepository
	notifier     notification.Dispatcher
}

func NewRegisterFeedbackUseCase(feedbackRepo repository.FeedbackRepository, notifier notification.Dispatcher) *RegisterFeedbackUseCase {
	return &RegisterFeedbackUseCase{feedbackRepo: feedbackRepo, notifier: notifier}
}

func (uc *RegisterFeedbackUseCase) Execute(ctx context.Context, input RegisterFeedbackInput) (*CaseSnapshot, error) {
	now := requireNow(input.Now)

	fc, t, err := entity.NewFeedbackCase(input.Category, input.StoreID, input.MarketID, input.Actor, now)
	if err != nil {
		return nil, err
	}

	entry := entity.NewEscalationLogEntry(fc.ID, input.Actor, t, now)
	if err := uc.feedbackRepo.Create(ctx, fc, entry); err != nil {
		return nil, storageError(err, "failed to create feedback case")
	}

	logger.WithFields(logrus.Fields{
		"case_id":  fc.ID,
		"priority": fc.Priority,
		"status":   fc.Status,
	}).Info("feedback registered")

	if t.EnteredEscalated() {
		uc.notifier.Notify(ctx, notification.KindCriticalEscalated, fc.ID, notificationContext(fc, input.Actor))
	}

	return newSnapshot(fc, nil), nil
}
