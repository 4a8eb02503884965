package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetByID - универсальная функция для получения строки по ID.
// Плейсхолдеры переписываются под диалект драйвера.
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table, columns string, id interface{}, notFoundErr error) (*T, error) {
	var row T
	query := sqlx.Rebind(sqlx.BindType(driverName(q)), fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", columns, table))

	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by id from %s: %w", table, err)
	}

	return &row, nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func driverName(q sqlx.QueryerContext) string {
	type named interface{ DriverName() string }
	if n, ok := q.(named); ok {
		return n.DriverName()
	}
	return "postgres"
}
