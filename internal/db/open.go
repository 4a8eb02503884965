package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open выбирает драйвер по имени из конфигурации.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "postgresql", "":
		return NewPostgres(ctx, dsn)
	case DriverSQLite, "sqlite3":
		return NewSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("db: неподдерживаемый драйвер %q", driver)
	}
}
