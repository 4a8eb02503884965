package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/repository/common"
)

type EscalationLogRepositoryAdapter struct {
	db *sqlx.DB
}

func NewEscalationLogRepositoryAdapter(db *sqlx.DB) *EscalationLogRepositoryAdapter {
	return &EscalationLogRepositoryAdapter{db: db}
}

func (r *EscalationLogRepositoryAdapter) ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.EscalationLogEntry, error) {
	var rows []escalationLogRow
	query := r.db.Rebind(`
		SELECT id, feedback_id, actor, from_status, to_status, from_priority, to_priority, reason, created_at
		FROM escalation_log WHERE feedback_id = ? ORDER BY seq
	`)
	if err := r.db.SelectContext(ctx, &rows, query, feedbackID); err != nil {
		return nil, common.StorageError(err, "failed to load escalation log")
	}

	result := make([]entity.EscalationLogEntry, len(rows))
	for i, row := range rows {
		entry, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		result[i] = entry
	}
	return result, nil
}

// insertLogEntry пишет аудит в транзакции изменения обращения; nil пропускается.
func insertLogEntry(ctx context.Context, tx *sqlx.Tx, entry *entity.EscalationLogEntry) error {
	if entry == nil {
		return nil
	}
	query := tx.Rebind(`
		INSERT INTO escalation_log (id, feedback_id, actor, from_status, to_status, from_priority, to_priority, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.FeedbackID, entry.Actor,
		string(entry.FromStatus), string(entry.ToStatus),
		string(entry.FromPriority), string(entry.ToPriority),
		string(entry.Reason), entry.CreatedAt,
	)
	return err
}

type escalationLogRow struct {
	ID           uuid.UUID `db:"id"`
	FeedbackID   uuid.UUID `db:"feedback_id"`
	Actor        string    `db:"actor"`
	FromStatus   string    `db:"from_status"`
	ToStatus     string    `db:"to_status"`
	FromPriority string    `db:"from_priority"`
	ToPriority   string    `db:"to_priority"`
	Reason       string    `db:"reason"`
	CreatedAt    time.Time `db:"created_at"`
}

func (e *escalationLogRow) toEntity() (entity.EscalationLogEntry, error) {
	var (
		entry entity.EscalationLogEntry
		err   error
	)
	if entry.FromStatus, err = valueobject.NewCaseStatus(e.FromStatus); err != nil {
		return entity.EscalationLogEntry{}, corruptRow(err, "escalation_log", e.ID)
	}
	if entry.ToStatus, err = valueobject.NewCaseStatus(e.ToStatus); err != nil {
		return entity.EscalationLogEntry{}, corruptRow(err, "escalation_log", e.ID)
	}
	if entry.FromPriority, err = valueobject.NewPriority(e.FromPriority); err != nil {
		return entity.EscalationLogEntry{}, corruptRow(err, "escalation_log", e.ID)
	}
	if entry.ToPriority, err = valueobject.NewPriority(e.ToPriority); err != nil {
		return entity.EscalationLogEntry{}, corruptRow(err, "escalation_log", e.ID)
	}

	entry.ID = e.ID
	entry.FeedbackID = e.FeedbackID
	entry.Actor = e.Actor
	entry.Reason = entity.TransitionReason(e.Reason)
	entry.CreatedAt = e.CreatedAt
	return entry, nil
}
