// Package pg opens the PostgreSQL-backed portal store.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cityinit.org/internal/store/sqlstore"
)

const pgErrUniqueViolation = "23505"

// Dialect is the PostgreSQL flavour of the shared SQL store. Read-modify-write
// paths take a row lock so concurrent writers to one project queue up.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	LockSuffix:        " for update",
	IsUniqueViolation: IsUniqueViolation,
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// Open connects through the pgx stdlib driver. The connection is lazy; call
// Ping to verify it.
func Open(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return sqlstore.New(db, Dialect), nil
}
