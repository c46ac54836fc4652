package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS crosswords (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		words TEXT NOT NULL,
		size INTEGER NOT NULL,
		placed_words TEXT NOT NULL,
		dropped TEXT NOT NULL DEFAULT '[]',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crosswords_created_at ON crosswords(created_at)`,
}

const (
	columns     = `id, title, words, size, placed_words, dropped, created_at, updated_at`
	upsertQuery = `INSERT INTO crosswords (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			words = excluded.words,
			size = excluded.size,
			placed_words = excluded.placed_words,
			dropped = excluded.dropped,
			updated_at = excluded.updated_at`
	getQuery    = `SELECT ` + columns + ` FROM crosswords WHERE id = ?`
	listQuery   = `SELECT ` + columns + ` FROM crosswords ORDER BY created_at DESC, id`
	deleteQuery = `DELETE FROM crosswords WHERE id = ?`
)

// SQL stores crosswords in SQLite or PostgreSQL.
type SQL struct {
	db      *sql.DB
	qb      *QueryBuilder
	timeout time.Duration
}

// OpenSQLite opens or creates the SQLite database at path.
func OpenSQLite(ctx context.Context, path string, timeout time.Duration) (*SQL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return openSQL(ctx, SQLiteDialect{}, path, timeout)
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*SQL, error) {
	return openSQL(ctx, PostgresDialect{}, dsn, timeout)
}

func openSQL(ctx context.Context, dialect Dialect, dsn string, timeout time.Duration) (*SQL, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.DriverName(), err)
	}
	s := &SQL{db: db, qb: NewQueryBuilder(dialect), timeout: timeout}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return s, nil
}

// Save inserts or replaces c.
func (s *SQL) Save(ctx context.Context, c *Crossword) error {
	stamp(c, time.Now())
	r, err := encode(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, s.qb.Build(upsertQuery),
		r.ID, r.Title, r.Words, r.Size, r.PlacedWords, r.Dropped, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving crossword: %w", err)
	}
	return nil
}

// Get reads a crossword by ID.
func (s *SQL) Get(ctx context.Context, id string) (*Crossword, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	r, err := scanRecord(s.db.QueryRowContext(ctx, s.qb.Build(getQuery), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading crossword: %w", err)
	}
	return decode(r)
}

// List reads every crossword, most recent first.
func (s *SQL) List(ctx context.Context) ([]*Crossword, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.qb.Build(listQuery))
	if err != nil {
		return nil, fmt.Errorf("listing crosswords: %w", err)
	}
	defer rows.Close()

	var list []*Crossword
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("listing crosswords: %w", err)
		}
		c, err := decode(r)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing crosswords: %w", err)
	}
	return list, nil
}

// Delete removes a crossword.
func (s *SQL) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.qb.Build(deleteQuery), id)
	if err != nil {
		return fmt.Errorf("deleting crossword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting crossword: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (record, error) {
	var r record
	err := row.Scan(&r.ID, &r.Title, &r.Words, &r.Size, &r.PlacedWords, &r.Dropped, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
