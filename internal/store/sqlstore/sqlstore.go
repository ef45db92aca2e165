// Package sqlstore implements the portal repositories on database/sql. The
// Postgres and SQLite backends share it and differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name string
	// LockSuffix is appended to the select of a read-modify-write.
	LockSuffix string
	// Placeholder rewrites $N placeholders; nil keeps them.
	Placeholder func(n int) string
	// IsUniqueViolation reports a duplicate key error.
	IsUniqueViolation func(err error) bool
}

// Store implements auth.UserStore, partner.Directory, project.Repository and
// project.DraftRepository.
type Store struct {
	db *sql.DB
	d  Dialect
}

// New wraps db. The schema must already exist.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// DB exposes the handle for readiness probes and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// q rewrites $N placeholders for the dialect.
func (s *Store) q(query string) string {
	if s.d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(query[i+1 : j])
		b.WriteString(s.d.Placeholder(n))
		i = j - 1
	}
	return b.String()
}

func (s *Store) unique(err error) bool {
	return err != nil && s.d.IsUniqueViolation != nil && s.d.IsUniqueViolation(err)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
