package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
	"github.com/ignatzorin/feedback-escalation/internal/repository/common"
)

const feedbackColumns = `id, category, priority, resolution_status, escalated_at, escalated_by, sla_deadline,
	auto_escalated, resolution_notes, store_id, market_id, version, created_at, updated_at`

type FeedbackRepositoryAdapter struct {
	db *sqlx.DB
}

func NewFeedbackRepositoryAdapter(db *sqlx.DB) *FeedbackRepositoryAdapter {
	return &FeedbackRepositoryAdapter{db: db}
}

func (r *FeedbackRepositoryAdapter) Create(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO feedback (` + feedbackColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if _, err := tx.ExecContext(ctx, query,
			fc.ID, fc.Category, string(fc.Priority), string(fc.Status),
			fc.EscalatedAt, fc.EscalatedBy, fc.SLADeadline, fc.AutoEscalated, fc.ResolutionNotes,
			fc.StoreID, fc.MarketID, 1, fc.CreatedAt, fc.UpdatedAt,
		); err != nil {
			return err
		}
		return insertLogEntry(ctx, tx, entry)
	})
	if err != nil {
		return common.StorageError(err, "failed to create feedback case")
	}

	fc.Version = 1
	return nil
}

// Update применяет изменения только при совпадении версии и в той же
// транзакции дописывает запись аудита.
func (r *FeedbackRepositoryAdapter) Update(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			UPDATE feedback SET category = ?, priority = ?, resolution_status = ?, escalated_at = ?,
			escalated_by = ?, sla_deadline = ?, auto_escalated = ?, resolution_notes = ?,
			updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`)
		res, err := tx.ExecContext(ctx, query,
			fc.Category, string(fc.Priority), string(fc.Status), fc.EscalatedAt,
			fc.EscalatedBy, fc.SLADeadline, fc.AutoEscalated, fc.ResolutionNotes,
			fc.UpdatedAt, fc.ID, fc.Version,
		)
		if err != nil {
			return err
		}

		if err := versionMatched(ctx, tx, res, fc.ID); err != nil {
			return err
		}

		return insertLogEntry(ctx, tx, entry)
	})
	if err != nil {
		return common.StorageError(err, "failed to update feedback case")
	}

	fc.Version++
	return nil
}

// bumpVersion поднимает версию обращения без изменения его полей.
func bumpVersion(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, version int64, at time.Time) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE feedback SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?
	`), at, id, version)
	if err != nil {
		return err
	}
	return versionMatched(ctx, tx, res, id)
}

// versionMatched различает отсутствие обращения и устаревшую версию, когда
// условный UPDATE не затронул ни одной строки.
func versionMatched(ctx context.Context, tx *sqlx.Tx, res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM feedback WHERE id = ?`), id); err != nil {
		return err
	}
	if exists == 0 {
		return apperror.ErrCaseNotFound
	}
	return apperror.ErrVersionConflict
}

func (r *FeedbackRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.FeedbackCase, error) {
	row, err := common.GetByID[feedbackRow](ctx, r.db, "feedback", feedbackColumns, id, apperror.ErrCaseNotFound)
	if err != nil {
		return nil, common.StorageError(err, "failed to load feedback case")
	}
	return row.toEntity()
}

type feedbackRow struct {
	ID              uuid.UUID  `db:"id"`
	Category        string     `db:"category"`
	Priority        string     `db:"priority"`
	Status          string     `db:"resolution_status"`
	EscalatedAt     *time.Time `db:"escalated_at"`
	EscalatedBy     *string    `db:"escalated_by"`
	SLADeadline     *time.Time `db:"sla_deadline"`
	AutoEscalated   bool       `db:"auto_escalated"`
	ResolutionNotes *string    `db:"resolution_notes"`
	StoreID         string     `db:"store_id"`
	MarketID        string     `db:"market_id"`
	Version         int64      `db:"version"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// toEntity отклоняет строки с неизвестным приоритетом или статусом: такие
// данные не могли быть записаны сервисом.
func (f *feedbackRow) toEntity() (*entity.FeedbackCase, error) {
	priority, err := valueobject.NewPriority(f.Priority)
	if err != nil {
		return nil, corruptRow(err, "feedback", f.ID)
	}
	status, err := valueobject.NewCaseStatus(f.Status)
	if err != nil {
		return nil, corruptRow(err, "feedback", f.ID)
	}

	return &entity.FeedbackCase{
		ID:              f.ID,
		Category:        f.Category,
		Priority:        priority,
		Status:          status,
		EscalatedAt:     f.EscalatedAt,
		EscalatedBy:     f.EscalatedBy,
		SLADeadline:     f.SLADeadline,
		AutoEscalated:   f.AutoEscalated,
		ResolutionNotes: f.ResolutionNotes,
		StoreID:         f.StoreID,
		MarketID:        f.MarketID,
		Version:         f.Version,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}, nil
}

func corruptRow(err error, table string, id uuid.UUID) error {
	return apperror.Wrap(err, apperror.ErrCodePersistenceUnavailable, "stored "+table+" row is invalid").
		WithDetails(map[string]interface{}{"id": id.String()})
}
