// Package store owns the process-wide document store: a set of named
// sections serialized together into a single JSON document on disk.
// Sections are owned by module repositories; the store contributes the
// serialization point (one writer at a time) and the debounced flush.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Section is one top-level key of the persisted JSON document.
type Section interface {
	Name() string
	Snapshot() (json.RawMessage, error)
	Restore(data json.RawMessage) error
}

// ErrSectionConflict indicates two sections registered under one name.
var ErrSectionConflict = errors.New("store: section name already registered")

// Store coordinates sections, the global write lock, and persistence.
type Store struct {
	mu       sync.RWMutex
	sections []Section
	byName   map[string]Section
	zero     map[string]json.RawMessage

	path     string
	debounce time.Duration
	logger   *slog.Logger

	flushMu sync.Mutex
	dirty   chan struct{}
}

// New constructs a Store persisting to path. A non-positive debounce
// falls back to 1.5s, the interval the desktop edition used.
func New(path string, debounce time.Duration, logger *slog.Logger) *Store {
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	return &Store{
		byName:   make(map[string]Section),
		zero:     make(map[string]json.RawMessage),
		path:     path,
		debounce: debounce,
		logger:   logger,
		dirty:    make(chan struct{}, 1),
	}
}

// Register adds a section. Registration order fixes the key order of the
// persisted document. The section's state at registration time is kept
// as its zero snapshot, which Import falls back to for sections absent
// from a backup.
func (s *Store) Register(sec Section) error {
	if _, ok := s.byName[sec.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrSectionConflict, sec.Name())
	}
	zero, err := sec.Snapshot()
	if err != nil {
		return fmt.Errorf("store: snapshot section %s: %w", sec.Name(), err)
	}
	s.sections = append(s.sections, sec)
	s.byName[sec.Name()] = sec
	s.zero[sec.Name()] = zero
	return nil
}

// Load reads the data file, if present, and restores every registered
// section. Missing keys leave the section at its zero state.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("store: read %s: %w", s.path, err)
	}
	return s.restore(raw)
}

func (s *Store) restore(raw []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("store: decode data file: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.sections {
		payload, ok := doc[sec.Name()]
		if !ok {
			continue
		}
		if err := sec.Restore(payload); err != nil {
			return fmt.Errorf("store: restore section %s: %w", sec.Name(), err)
		}
	}
	return nil
}

// Apply runs fn under the exclusive write lock. A nil error marks the
// store dirty and schedules a flush. Mutations inside fn must be
// all-or-nothing: validate first, mutate last.
func (s *Store) Apply(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case s.dirty <- struct{}{}:
	default:
	}
	return nil
}

// View runs fn under the shared read lock.
func (s *Store) View(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// Run drives the debounced flush loop until ctx is cancelled, then
// performs a final flush so shutdown loses nothing.
func (s *Store) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return s.Flush()
		case <-s.dirty:
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-fire
				}
				timer.Reset(s.debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			if err := s.Flush(); err != nil && s.logger != nil {
				// In-memory state stays correct; the next mutation
				// reschedules the flush.
				s.logger.Error("store flush failed", slog.Any("error", err))
			}
		}
	}
}

// Flush writes the whole document to disk via temp file + rename.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	raw, err := s.marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".daftar-*.json")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: replace data file: %w", err)
	}
	return nil
}

func (s *Store) marshal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := make(map[string]json.RawMessage, len(s.sections))
	for _, sec := range s.sections {
		payload, err := sec.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("store: snapshot section %s: %w", sec.Name(), err)
		}
		doc[sec.Name()] = payload
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Export streams the current document, the wholesale backup format.
func (s *Store) Export(w io.Writer) error {
	raw, err := s.marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// Import replaces the whole document from a backup and flushes. Sections
// absent from the backup reset to their registration-time state. A bad
// section aborts the import and rolls every section back, so the store
// is never left half-imported.
func (s *Store) Import(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("store: read import: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("store: decode data file: %w", err)
	}

	s.mu.Lock()
	prev := make(map[string]json.RawMessage, len(s.sections))
	for _, sec := range s.sections {
		snap, err := sec.Snapshot()
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("store: snapshot section %s: %w", sec.Name(), err)
		}
		prev[sec.Name()] = snap
	}
	var failed error
	for i, sec := range s.sections {
		payload, ok := doc[sec.Name()]
		if !ok {
			payload = s.zero[sec.Name()]
		}
		if err := sec.Restore(payload); err != nil {
			failed = fmt.Errorf("store: restore section %s: %w", sec.Name(), err)
			for j := 0; j <= i; j++ {
				_ = s.sections[j].Restore(prev[s.sections[j].Name()])
			}
			break
		}
	}
	s.mu.Unlock()
	if failed != nil {
		return failed
	}
	return s.Flush()
}
