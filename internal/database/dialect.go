package database

import (
	"errors"
	"fmt"

	"expense-tracker-bot-go/internal/store"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	driverPostgres = "postgres"
	driverSqlite   = "sqlite3"

	pqUniqueViolation = pq.ErrorCode("23505")
)

// dialect captures the statements that differ between postgres and sqlite.
type dialect struct {
	name   string
	schema string
	insert string
	copy   string
}

var dialects = map[string]dialect{
	driverPostgres: {name: driverPostgres, schema: postgresSchema, insert: postgresInsert, copy: postgresCopy},
	driverSqlite:   {name: driverSqlite, schema: sqliteSchema, insert: sqliteInsert, copy: sqliteCopy},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("%w: unsupported database driver %q", store.ErrConfiguration, driver)
	}
	return d, nil
}

// isUniqueViolation reports whether err is a primary key or unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// storageError wraps a driver failure into the storage taxonomy.
func storageError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %w", store.ErrDuplicateId, op, err)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrStorage, op, err)
}
