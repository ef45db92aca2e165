// Package sqlite opens the single-node portal store on an embedded SQLite file.
package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"cityinit.org/internal/store/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

// Dialect rewrites placeholders to ?N. SQLite has no row locks; the single
// connection serialises writers and the version check still guards updates.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	Placeholder:       func(n int) string { return "?" + strconv.Itoa(n) },
	IsUniqueViolation: IsUniqueViolation,
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return sqlstore.New(db, Dialect), nil
}
