package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter keeps the weights in an embedded database file
type SQLiteAdapter struct {
	path string
	db   *sql.DB
}

var _ Adapter = &SQLiteAdapter{}

// NewSQLiteAdapter opens (or creates) the database at path
func NewSQLiteAdapter(ctx context.Context, path string) (*SQLiteAdapter, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", types.ErrConfiguration)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS weights (
			key TEXT PRIMARY KEY,
			weight TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteAdapter{path: path, db: db}, nil
}

func (s *SQLiteAdapter) Get(ctx context.Context, key string) (types.Weight, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT weight FROM weights WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return decimal.Zero, err
	}
	w, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrCorruptFormat, key, err)
	}
	return w, nil
}

const upsertWeight = `
	INSERT INTO weights (key, weight)
	VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET weight = excluded.weight
`

func (s *SQLiteAdapter) Set(ctx context.Context, key string, weight types.Weight) error {
	_, err := s.db.ExecContext(ctx, upsertWeight, key, weight.String())
	return err
}

func (s *SQLiteAdapter) SetAll(ctx context.Context, entries map[string]types.Weight) error {
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertAll(ctx, tx, entries)
	})
}

func (s *SQLiteAdapter) Exists(ctx context.Context, key string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM weights WHERE key = ?)`, key).Scan(&found)
	if err != nil {
		return false, err
	}
	return found == 1, nil
}

func (s *SQLiteAdapter) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM weights ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteAdapter) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM weights WHERE key = ?`, key)
	return err
}

func (s *SQLiteAdapter) Persist(ctx context.Context, path string) error {
	entries, err := Snapshot(ctx, s)
	if err != nil {
		return err
	}
	return WriteSnapshot(path, entries)
}

func (s *SQLiteAdapter) Load(ctx context.Context, path string) error {
	entries, err := ReadSnapshot(path)
	if err != nil {
		return err
	}
	return s.Replace(ctx, entries)
}

func (s *SQLiteAdapter) Replace(ctx context.Context, entries map[string]types.Weight) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM weights`); err != nil {
			return err
		}
		return insertAll(ctx, tx, entries)
	})
}

func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}

func (s *SQLiteAdapter) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, entries map[string]types.Weight) error {
	stmt, err := tx.PrepareContext(ctx, upsertWeight)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for k, w := range entries {
		if _, err := stmt.ExecContext(ctx, k, w.String()); err != nil {
			return err
		}
	}
	return nil
}
