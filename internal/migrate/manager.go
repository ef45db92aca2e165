// Package migrate applies the portal's PostgreSQL schema and demo seeds from
// an fs.FS, normally the embedded ops/migrations tree.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// ErrDrift reports an applied migration whose file has changed since.
var ErrDrift = errors.New("migrate: applied migration was modified")

// fileSet is one family of SQL files and the table that remembers them.
type fileSet struct {
	kind   string
	dir    string
	suffix string
	table  string
	// strict sets refuse to run when an applied file changed.
	strict bool
}

// Applied is one bookkeeping row.
type Applied struct {
	Name      string
	Checksum  string
	AppliedAt time.Time
}

func (a Applied) String() string {
	sum := a.Checksum
	if len(sum) > 12 {
		sum = sum[:12]
	}
	return fmt.Sprintf("%s  %-12s  %s", a.AppliedAt.UTC().Format(time.RFC3339), sum, a.Name)
}

// Manager runs versioned schema files (NNNN_name.up.sql with a matching
// .down.sql) and seed files. Every file runs in one transaction together with
// its bookkeeping row.
type Manager struct {
	db     *sql.DB
	fsys   fs.FS
	schema fileSet
	seeds  fileSet
	now    func() time.Time
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the schema bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.schema.table = name
		}
	}
}

// WithSeedsTable overrides the seed bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seeds.table = name
		}
	}
}

// WithClock overrides the applied_at source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager. migrationsDir and seedsDir are paths
// inside fsys; an empty dir disables that set.
func NewManager(db *sql.DB, fsys fs.FS, migrationsDir, seedsDir string, opts ...Option) *Manager {
	m := &Manager{
		db:     db,
		fsys:   fsys,
		schema: fileSet{kind: "migration", dir: migrationsDir, suffix: ".up.sql", table: "schema_migrations", strict: true},
		seeds:  fileSet{kind: "seed", dir: seedsDir, suffix: ".sql", table: "schema_seeds"},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations in file name order.
func (m *Manager) Up(ctx context.Context) error {
	return m.applyPending(ctx, m.schema)
}

// Seed applies seed files that have not run yet. Seeds may be edited after
// they ran; the new content is not re-applied.
func (m *Manager) Seed(ctx context.Context) error {
	return m.applyPending(ctx, m.seeds)
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, m.schema.table)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return errors.New("no migrations applied")
	}
	last := applied[len(applied)-1].Name
	downPath := path.Join(m.schema.dir, strings.TrimSuffix(last, m.schema.suffix)+".down.sql")
	body, err := fs.ReadFile(m.fsys, downPath)
	if err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	err = m.inTx(ctx, body, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, m.schema.table), last)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	return nil
}

// Status returns the applied migrations, oldest first.
func (m *Manager) Status(ctx context.Context) ([]Applied, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.applied(ctx, m.schema.table)
}

func (m *Manager) applyPending(ctx context.Context, set fileSet) error {
	if set.dir == "" {
		return nil
	}
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, set.table)
	if err != nil {
		return err
	}
	done := make(map[string]string, len(applied))
	for _, a := range applied {
		done[a.Name] = a.Checksum
	}
	files, err := collectSQL(m.fsys, set.dir, set.suffix)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := fs.ReadFile(m.fsys, f.Path)
		if err != nil {
			return err
		}
		sum := checksum(body)
		if prev, ok := done[f.Base]; ok {
			if set.strict && prev != "" && prev != sum {
				return fmt.Errorf("%w: %s", ErrDrift, f.Base)
			}
			continue
		}
		err = m.inTx(ctx, body, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`insert into %s (name, checksum, applied_at) values ($1, $2, $3)`, set.table),
				f.Base, sum, m.now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s %s: %w", set.kind, f.Base, err)
		}
	}
	return nil
}

// inTx runs the statements of body and then record inside one transaction.
func (m *Manager) inTx(ctx context.Context, body []byte, record func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.schema.table, m.seeds.table} {
		ddl := fmt.Sprintf(`create table if not exists %s (
			name       text primary key,
			checksum   text not null default '',
			applied_at timestamptz not null default now()
		)`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
	}
	return nil
}

func (m *Manager) applied(ctx context.Context, table string) ([]Applied, error) {
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name, checksum, applied_at from %s order by applied_at, name`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Name, &a.Checksum, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type sqlFile struct {
	Base string
	Path string
}

// collectSQL lists files in dir ending in suffix, sorted by name. A missing
// dir yields nothing.
func collectSQL(fsys fs.FS, dir, suffix string) ([]sqlFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []sqlFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, sqlFile{Base: e.Name(), Path: path.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Base < files[j].Base })
	return files, nil
}

// splitStatements cuts src at semicolons that are outside quotes and $$
// bodies. Line comments are dropped; empty statements are skipped.
func splitStatements(src string) []string {
	var (
		stmts  []string
		cur    strings.Builder
		quoted bool
		dollar bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case !quoted && !dollar && c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
			continue
		case !quoted && c == '$' && i+1 < len(src) && src[i+1] == '$':
			dollar = !dollar
			cur.WriteString("$$")
			i++
			continue
		case !dollar && c == '\'':
			quoted = !quoted
		case !quoted && !dollar && c == ';':
			cur.WriteByte(c)
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return stmts
}
