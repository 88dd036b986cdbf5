// Package failurelog persists validation failures in an append-only JSONL
// log. Every mutation is a new line; the in-memory index is rebuilt by
// replaying the file on open, so the log survives restarts and concurrent
// writers never rewrite history.
package failurelog

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/logging"
	"github.com/careops/visitsync/pkg/records"
)

// line is one JSONL entry. Kind "failure" carries a full failure; kind
// "status" folds a status transition onto an earlier entry during replay.
type line struct {
	Kind    string                     `json:"kind"`
	Failure *records.ValidationFailure `json:"failure,omitempty"`
	ID      string                     `json:"id,omitempty"`
	From    records.FailureStatus      `json:"from,omitempty"`
	To      records.FailureStatus      `json:"to,omitempty"`
	At      time.Time                  `json:"at,omitempty"`
}

const (
	kindFailure = "failure"
	kindStatus  = "status"
)

// Store is the failure log. Safe for concurrent use; all operations
// serialize on the store mutex.
type Store struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	entries map[string]*records.ValidationFailure
	order   []string
	skipped int
}

// Open opens or creates the log at path and replays it into memory.
// Malformed lines are skipped and counted, never fatal.
func Open(path string) (*Store, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	s := &Store{
		path:    path,
		file:    file,
		entries: make(map[string]*records.ValidationFailure),
	}
	if err := s.replay(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay() error {
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	logger := logging.Default()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var entry line
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.skipped++
			logger.Warn().Int("line", lineNo).Err(err).Msg("Skipping malformed failure log line")
			continue
		}

		switch entry.Kind {
		case kindFailure:
			if entry.Failure == nil || entry.Failure.ID == "" {
				s.skipped++
				continue
			}
			if _, exists := s.entries[entry.Failure.ID]; exists {
				continue
			}
			f := *entry.Failure
			s.entries[f.ID] = &f
			s.order = append(s.order, f.ID)
		case kindStatus:
			f, exists := s.entries[entry.ID]
			if !exists || !entry.To.IsValid() {
				s.skipped++
				continue
			}
			f.Status = entry.To
		default:
			s.skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.WrapIO("replay", s.path, err)
	}
	return nil
}

// Append stores a failure. When an entry with the same ID already exists,
// live or terminal, Append is a no-op returning the existing entry and
// created=false. Identical discrepancies re-detected on later passes hash
// to the same ID, so this is the dedup point for the whole pipeline.
func (s *Store) Append(f records.ValidationFailure) (records.ValidationFailure, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[f.ID]; ok {
		return *existing, false, nil
	}

	if f.Status == "" {
		f.Status = records.StatusOpen
	}
	if err := s.write(line{Kind: kindFailure, Failure: &f}); err != nil {
		return records.ValidationFailure{}, false, err
	}

	stored := f
	s.entries[f.ID] = &stored
	s.order = append(s.order, f.ID)
	return f, true, nil
}

// Filter narrows List output.
type Filter struct {
	Status records.FailureStatus
	Limit  int
	Offset int
}

// List returns failures in append order, optionally filtered and paged.
func (s *Store) List(filter Filter) []records.ValidationFailure {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []records.ValidationFailure
	for _, id := range s.order {
		f := s.entries[id]
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, *f)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// Get returns the failure with the given ID.
func (s *Store) Get(id string) (records.ValidationFailure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.entries[id]
	if !ok {
		return records.ValidationFailure{}, errors.NewNotFoundError("validation failure", id)
	}
	return *f, nil
}

// FirstOpen returns the oldest OPEN failure in append order. This is the
// selection rule behind "the current mismatch".
func (s *Store) FirstOpen() (records.ValidationFailure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if f := s.entries[id]; f.Status == records.StatusOpen {
			return *f, true
		}
	}
	return records.ValidationFailure{}, false
}

// MarkStatus appends a status transition unconditionally.
func (s *Store) MarkStatus(id string, to records.FailureStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, "", to)
}

// MarkStatusFrom is the compare-and-set transition: it succeeds only when
// the entry is currently in from. Returns changed=false (no error) when
// another writer got there first.
func (s *Store) MarkStatusFrom(id string, from, to records.FailureStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.entries[id]
	if !ok {
		return false, errors.NewNotFoundError("validation failure", id)
	}
	if f.Status != from {
		return false, nil
	}
	if err := s.transition(id, from, to); err != nil {
		return false, err
	}
	return true, nil
}

// transition writes a status line and updates the index. Caller holds the
// mutex.
func (s *Store) transition(id string, from, to records.FailureStatus) error {
	f, ok := s.entries[id]
	if !ok {
		return errors.NewNotFoundError("validation failure", id)
	}
	if !to.IsValid() {
		return errors.NewValidationError("status", string(to), "unknown failure status")
	}

	if err := s.write(line{Kind: kindStatus, ID: id, From: from, To: to, At: time.Now().UTC()}); err != nil {
		return err
	}
	f.Status = to
	return nil
}

// write appends one JSONL line and flushes it to disk. Caller holds the
// mutex.
func (s *Store) write(entry line) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return errors.WrapIO("append", s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return errors.WrapIO("sync", s.path, err)
	}
	return nil
}

// Len returns the number of distinct failures in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// SkippedLines reports how many malformed lines replay ignored.
func (s *Store) SkippedLines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
