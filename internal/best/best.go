// Package best keeps the best finished round per difficulty.
package best

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is the best result of one difficulty.
type Record struct {
	Score          int
	ElapsedSeconds int
	Timestamp      time.Time
}

// Better reports whether r beats prev: a higher score, or the same score in
// strictly less time.
func Better(r, prev Record) bool {
	if r.Score != prev.Score {
		return r.Score > prev.Score
	}
	return r.ElapsedSeconds < prev.ElapsedSeconds
}

// Store persists one Record per difficulty.
type Store interface {
	// ReportResult stores the result if it beats the current record and
	// reports whether it did.
	ReportResult(ctx context.Context, difficulty string, score, elapsedSeconds int) (bool, error)
	// QueryBest returns the record for difficulty; found is false if none.
	QueryBest(ctx context.Context, difficulty string) (rec Record, found bool, err error)
	// ClearAll forgets every record.
	ClearAll(ctx context.Context) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// ErrInvalidDifficulty is returned for empty difficulty keys or keys that
// are not safe to use in a file name.
var ErrInvalidDifficulty = errors.New("invalid difficulty key")

// Open returns the store for backend. sqlitePath and fileDir are used by the
// sqlite and file backends.
func Open(backend Backend, sqlitePath, fileDir string) (Store, error) {
	switch Backend(strings.ToLower(string(backend))) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(fileDir), nil
	case BackendSQLite, "":
		return OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown best store backend %q", backend)
	}
}

func checkKey(difficulty string) error {
	if difficulty == "" || strings.ContainsAny(difficulty, `/\`) || strings.Contains(difficulty, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, difficulty)
	}
	return nil
}
