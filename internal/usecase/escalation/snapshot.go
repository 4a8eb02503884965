package escalation

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// CaseSnapshot описывает обращение для вызывающего слоя. Case передаётся
// по значению, изменения снимка не попадают в хранилище.
type CaseSnapshot struct {
	Case                        entity.FeedbackCase
	Approvals                   []entity.ApprovalRecord
	MissingRoles                []valueobject.ApproverRole
	QuorumComplete              bool
	ArchiveConfirmationRequired bool
}

func newSnapshot(fc *entity.FeedbackCase, approvals []entity.ApprovalRecord) *CaseSnapshot {
	q := entity.NewQuorum(approvals)
	copied := make([]entity.ApprovalRecord, len(approvals))
	copy(copied, approvals)

	return &CaseSnapshot{
		Case:                        *fc,
		Approvals:                   copied,
		MissingRoles:                q.MissingRoles(),
		QuorumComplete:              q.IsComplete(),
		ArchiveConfirmationRequired: fc.AwaitsArchiveConfirmation(q.IsComplete()),
	}
}

// writeOutcome итог успешной попытки записи; уведомления отправляются по нему
// только после того, как запись прошла.
type writeOutcome struct {
	fc         *entity.FeedbackCase
	approvals  []entity.ApprovalRecord
	transition entity.Transition
}

func notificationContext(fc *entity.FeedbackCase, actor string) notification.Context {
	data := notification.Context{
		Category:    fc.Category,
		Priority:    fc.Priority,
		Status:      fc.Status,
		StoreID:     fc.StoreID,
		MarketID:    fc.MarketID,
		Actor:       actor,
		SLADeadline: fc.SLADeadline,
	}
	if fc.ResolutionNotes != nil {
		data.ResolutionNotes = *fc.ResolutionNotes
	}
	return data
}

// storageError оставляет доменные ошибки как есть, остальное считает недоступностью хранилища.
func storageError(err error, message string) error {
	if err == nil {
		return nil
	}
	if apperror.CodeOf(err) != "" {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodePersistenceUnavailable, message)
}

// maxWriteAttempts ограничивает повторы при конфликте версий: каждый конфликт
// означает чужую успешную запись, поэтому попыток нужно не больше, чем
// одновременных писателей.
const maxWriteAttempts = 10

// withConflictRetry повторяет попытку целиком, со свежей загрузкой обращения,
// пока хранилище отвечает конфликтом версий.
func withConflictRetry[T any](attempt func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for i := 0; i < maxWriteAttempts; i++ {
		result, err = attempt()
		if !apperror.IsConflict(err) {
			return result, err
		}
	}
	return result, err
}

func requireNow(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now().UTC()
	}
	return now
}

func requireCaseID(id uuid.UUID) error {
	if id == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "feedback case id is required")
	}
	return nil
}
