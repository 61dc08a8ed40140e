package best

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const filePrefix = "memory_best_"

// fileRecord is the on-disk document: {"score":..,"time":..,"date":<unix ms>}.
type fileRecord struct {
	Score int   `json:"score"`
	Time  int   `json:"time"`
	Date  int64 `json:"date"`
}

var errCorrupt = errors.New("corrupt record")

// FileStore keeps one JSON document per difficulty under dir, named
// memory_best_<difficulty>.json.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir, now: time.Now} }

func (s *FileStore) pathFor(difficulty string) string {
	return filepath.Join(s.dir, filePrefix+difficulty+".json")
}

func (s *FileStore) ReportResult(_ context.Context, difficulty string, score, elapsedSeconds int) (bool, error) {
	if err := checkKey(difficulty); err != nil {
		return false, err
	}
	rec := Record{Score: score, ElapsedSeconds: elapsedSeconds, Timestamp: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, found, err := s.read(difficulty)
	switch {
	case errors.Is(err, errCorrupt):
		found = false
	case err != nil:
		return false, err
	}
	if found && !Better(rec, prev) {
		return false, nil
	}
	if err := s.write(difficulty, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) QueryBest(_ context.Context, difficulty string) (Record, bool, error) {
	if err := checkKey(difficulty); err != nil {
		return Record{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(difficulty)
}

func (s *FileStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(difficulty string) (Record, bool, error) {
	b, err := os.ReadFile(s.pathFor(difficulty))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read best %s: %w", difficulty, err)
	}
	var fr fileRecord
	if err := json.Unmarshal(b, &fr); err != nil {
		return Record{}, false, fmt.Errorf("%w %s: %v", errCorrupt, difficulty, err)
	}
	return Record{Score: fr.Score, ElapsedSeconds: fr.Time, Timestamp: time.UnixMilli(fr.Date)}, true, nil
}

// write replaces the record through a temp file so readers never see a
// partial document.
func (s *FileStore) write(difficulty string, rec Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	b, err := json.Marshal(fileRecord{Score: rec.Score, Time: rec.ElapsedSeconds, Date: rec.Timestamp.UnixMilli()})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.pathFor(difficulty))
}
