package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func init() {
	// modernc регистрирует драйвер под именем "sqlite", которое sqlx не знает.
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// NewSQLite открывает встроенную базу для локального запуска и тестов.
// path может быть ":memory:" или путём к файлу.
func NewSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := ensureSQLiteDirectory(path); err != nil {
		return nil, err
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sqlx.ConnectContext(ctx, sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: не удалось открыть %s: %w", path, err)
	}

	// Один писатель: SQLite сериализует записи сам, лишние соединения дают SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	return conn, nil
}

func ensureSQLiteDirectory(path string) error {
	candidate := strings.TrimSpace(path)
	if candidate == "" || strings.HasPrefix(candidate, ":memory:") {
		return nil
	}
	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: не удалось создать каталог %s: %w", dir, err)
	}
	return nil
}
