// Package store persists the ledger in an embedded SQLite database.
//
// All writes go through Atomic, which serializes writers behind one mutex and
// runs them in a single SQL transaction. Readers use the shared pool and, with
// WAL enabled, only ever see committed state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/ledger/internal/errs"
)

const dateFormat = "2006-01-02"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the database handle and the single-writer lock.
type Store struct {
	db      *sql.DB
	path    string
	log     *slog.Logger
	writeMu sync.Mutex
}

// Open opens (creating if needed) a SQLite ledger at dbPath with foreign keys and WAL enabled.
func Open(ctx context.Context, dbPath string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := New(db, log)
	s.path = dbPath
	if err := s.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle. The schema is not touched.
func New(db *sql.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{db: db, log: log}
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path, empty for wrapped handles.
func (s *Store) Path() string {
	return s.path
}

// Reader returns a repository over the shared pool for read-only use.
func (s *Store) Reader() *Repo {
	return &Repo{q: s.db}
}

// Atomic runs fn inside one serialized write transaction. Either every
// statement fn issues is committed or none is.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, r *Repo) error) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.log.Debug("transaction begin")

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.log.Error("transaction panic", "panic", p)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("tx err: %w, rollback err: %v", err, rbErr)
			}
			s.log.Debug("transaction rollback", "error", err)
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("committing transaction: %w", err)
			return
		}
		s.log.Debug("transaction commit")
	}()

	return fn(ctx, &Repo{q: tx})
}

// Repo runs queries against either the pool or an open transaction.
type Repo struct {
	q querier
}

func (r *Repo) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

func (r *Repo) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return r.q.QueryContext(ctx, query, args...)
}

func (r *Repo) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return r.q.QueryRowContext(ctx, query, args...), nil
}

// translate maps constraint violations onto ledger error kinds.
func translate(err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: duplicate value: %v", errs.ErrValidationFailed, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: row is referenced or references a missing row: %v", errs.ErrValidationFailed, err)
		}
	}
	return err
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
