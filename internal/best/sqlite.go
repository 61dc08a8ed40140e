package best

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS best_records (
    difficulty      TEXT PRIMARY KEY,
    score           INTEGER NOT NULL,
    elapsed_seconds INTEGER NOT NULL,
    recorded_at     INTEGER NOT NULL
);`

// SQLiteStore keeps records in a SQLite table, one row per difficulty.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if missing) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create best_records: %w", err)
	}
	log.Debug().Str("path", path).Msg("best store ready")
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// openDB ensures the parent directory exists and opens the database with a
// busy timeout and WAL journaling.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	return db, nil
}

// ReportResult upserts the row only when the new result is better; the
// affected row count tells whether it was.
func (s *SQLiteStore) ReportResult(ctx context.Context, difficulty string, score, elapsedSeconds int) (bool, error) {
	if err := checkKey(difficulty); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO best_records (difficulty, score, elapsed_seconds, recorded_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(difficulty) DO UPDATE SET
            score = excluded.score,
            elapsed_seconds = excluded.elapsed_seconds,
            recorded_at = excluded.recorded_at
        WHERE excluded.score > best_records.score
           OR (excluded.score = best_records.score
               AND excluded.elapsed_seconds < best_records.elapsed_seconds)`,
		difficulty, score, elapsedSeconds, s.now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("report best %s: %w", difficulty, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) QueryBest(ctx context.Context, difficulty string) (Record, bool, error) {
	var (
		rec Record
		at  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT score, elapsed_seconds, recorded_at FROM best_records WHERE difficulty=?`,
		difficulty,
	).Scan(&rec.Score, &rec.ElapsedSeconds, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query best %s: %w", difficulty, err)
	}
	rec.Timestamp = time.UnixMilli(at)
	return rec, true, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM best_records`); err != nil {
		return fmt.Errorf("clear best records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
