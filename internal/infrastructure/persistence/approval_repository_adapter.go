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

type ApprovalRepositoryAdapter struct {
	db *sqlx.DB
}

func NewApprovalRepositoryAdapter(db *sqlx.DB) *ApprovalRepositoryAdapter {
	return &ApprovalRepositoryAdapter{db: db}
}

// InsertIgnoreDuplicate опирается на уникальный индекс (feedback_id, approver_user_id):
// повторное согласование того же человека не меняет ни одной строки.
// Новое согласование поднимает версию обращения, поэтому параллельная смена
// категории, прочитавшая старый набор согласований, получит конфликт версий.
func (r *ApprovalRepositoryAdapter) InsertIgnoreDuplicate(ctx context.Context, fc *entity.FeedbackCase, record *entity.ApprovalRecord, entry *entity.EscalationLogEntry) (bool, error) {
	inserted := false
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO feedback_approvals (id, feedback_id, approver_user_id, approver_role, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (feedback_id, approver_user_id) DO NOTHING
		`), record.ID, record.FeedbackID, record.ApproverID, string(record.Role), record.CreatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		if err := bumpVersion(ctx, tx, fc.ID, fc.Version, record.CreatedAt); err != nil {
			return err
		}
		inserted = true
		return insertLogEntry(ctx, tx, entry)
	})
	if err != nil {
		return false, common.StorageError(err, "failed to record approval")
	}

	if inserted {
		fc.Version++
		fc.UpdatedAt = record.CreatedAt
	}
	return inserted, nil
}

func (r *ApprovalRepositoryAdapter) ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.ApprovalRecord, error) {
	var rows []approvalRow
	query := r.db.Rebind(`
		SELECT id, feedback_id, approver_user_id, approver_role, created_at
		FROM feedback_approvals WHERE feedback_id = ? ORDER BY created_at, id
	`)
	if err := r.db.SelectContext(ctx, &rows, query, feedbackID); err != nil {
		return nil, common.StorageError(err, "failed to load approvals")
	}

	result := make([]entity.ApprovalRecord, len(rows))
	for i, row := range rows {
		rec, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

type approvalRow struct {
	ID         uuid.UUID `db:"id"`
	FeedbackID uuid.UUID `db:"feedback_id"`
	ApproverID uuid.UUID `db:"approver_user_id"`
	Role       string    `db:"approver_role"`
	CreatedAt  time.Time `db:"created_at"`
}

func (a *approvalRow) toEntity() (entity.ApprovalRecord, error) {
	role, err := valueobject.ParseApproverRole(a.Role)
	if err != nil {
		return entity.ApprovalRecord{}, corruptRow(err, "feedback_approvals", a.ID)
	}
	return entity.ApprovalRecord{
		ID:         a.ID,
		FeedbackID: a.FeedbackID,
		ApproverID: a.ApproverID,
		Role:       role,
		CreatedAt:  a.CreatedAt,
	}, nil
}
