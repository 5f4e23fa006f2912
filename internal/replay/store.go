// Package replay persists serialized requests in an append-only JSONL file so
// calls can be replayed later, possibly by another process.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/confreq/pkg/request"
)

// ErrNotFound is returned by Get for an unknown record id.
var ErrNotFound = errors.New("replay record not found")

// maxLine bounds one JSONL record.
const maxLine = 4 << 20

// Record is one persisted call.
type Record struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"createdAt"`
	Label     string             `json:"label,omitempty"`
	Request   request.Serialized `json:"request"`
}

// Store is a JSONL file of records guarded by an advisory file lock, so
// several processes can append to the same file. The mutex serializes
// goroutines of this process; the file lock is held per Flock handle.
type Store struct {
	mu   sync.RWMutex
	path string
	lock *flock.Flock
}

// Open prepares a store at path, creating its directory if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("replay file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create replay directory: %w", err)
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path is the JSONL file backing the store.
func (s *Store) Path() string { return s.path }

// Append writes a new record for ser and returns it.
func (s *Store) Append(label string, ser request.Serialized) (Record, error) {
	if ser.Ref == "" {
		return Record{}, errors.New("serialized request has no template reference")
	}
	id := ulid.Make()
	rec := Record{
		ID:        id.String(),
		CreatedAt: ulid.Time(id.Time()).UTC(),
		Label:     label,
		Request:   ser,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return Record{}, fmt.Errorf("lock replay file: %w", err)
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("open replay file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return Record{}, fmt.Errorf("write record: %w", err)
	}
	if err := f.Close(); err != nil {
		return Record{}, fmt.Errorf("close replay file: %w", err)
	}
	return rec, nil
}

// List returns every record in file order. A missing file is an empty store.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock replay file: %w", err)
	}
	defer s.lock.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return Record{}, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Replay rebuilds the call of rec through reg and dispatches it.
func Replay(ctx context.Context, reg *request.Registry, rec Record) (any, error) {
	return reg.Replay(ctx, rec.Request)
}
