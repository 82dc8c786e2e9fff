// Package archive persists parse results: family trees, their people and
// relationships, events, notes, sources, citations, an audit log, and the
// import history. It runs on SQLite (default) or PostgreSQL behind
// database/sql, with the schema applied by embedded goose migrations.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/sqlite"
	"github.com/FocuswithJustin/Linegra/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// batchSize bounds the rows of one multi-row INSERT.
const batchSize = 100

// Store is the archive database.
type Store struct {
	db      *sql.DB
	dialect goose.Dialect
	sq      squirrel.StatementBuilderType
	now     func() time.Time
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var (
		db      *sql.DB
		err     error
		dialect goose.Dialect
	)
	switch cfg.Driver {
	case "postgres":
		db, err = sql.Open("pgx", cfg.DSN)
		dialect = goose.DialectPostgres
	case "sqlite", "":
		db, err = sqlite.OpenFile(cfg.DSN)
		dialect = goose.DialectSQLite3
	default:
		return nil, errors.NewUnsupported("database driver "+cfg.Driver, "use sqlite or postgres")
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s, err := New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates it.
func New(ctx context.Context, db *sql.DB, dialect goose.Dialect) (*Store, error) {
	var placeholder squirrel.PlaceholderFormat = squirrel.Question
	if dialect == goose.DialectPostgres {
		placeholder = squirrel.Dollar
	}
	s := &Store{
		db:      db,
		dialect: dialect,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(s.dialect, s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exec renders and runs a builder.
func exec(ctx context.Context, q execer, b squirrel.Sqlizer, op, entity string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.NewStore("build "+op, entity, err)
	}
	_, err = q.ExecContext(ctx, query, args...)
	return errors.NewStore(op, entity, err)
}

// query renders and runs a SELECT builder.
func query(ctx context.Context, q execer, b squirrel.SelectBuilder, entity string) (*sql.Rows, error) {
	text, args, err := b.ToSql()
	if err != nil {
		return nil, errors.NewStore("build select", entity, err)
	}
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, errors.NewStore("select", entity, err)
	}
	return rows, nil
}

// insertRows writes rows into table in batches.
func (s *Store) insertRows(ctx context.Context, q execer, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		b := s.sq.Insert(table).Columns(columns...)
		for _, row := range rows[start:end] {
			b = b.Values(row...)
		}
		if err := exec(ctx, q, b, "insert", table); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStore("begin", "transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.NewStore("commit", "transaction", tx.Commit())
}
