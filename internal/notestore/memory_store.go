package notestore

import (
	"log/slog"
	"slices"
	"sync"
)

// MemoryNoteStore keeps notes in a map guarded by a single mutex.
// Enumeration follows first-insertion order; overwriting keeps a note's position.
type MemoryNoteStore struct {
	observers

	mu    sync.RWMutex
	notes map[string]string
	order []string
}

// NewMemoryNoteStore creates an empty MemoryNoteStore.
func NewMemoryNoteStore(logger *slog.Logger) *MemoryNoteStore {
	return &MemoryNoteStore{
		observers: observers{logger: logger},
		notes:     make(map[string]string),
	}
}

// Initialize is a no-op; the store is ready once constructed.
func (s *MemoryNoteStore) Initialize() error {
	return nil
}

// Close drops all notes.
func (s *MemoryNoteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[string]string)
	s.order = nil
	return nil
}

// Put inserts or overwrites a note.
func (s *MemoryNoteStore) Put(name, content string) (string, error) {
	s.mu.Lock()
	_, exists := s.notes[name]
	s.notes[name] = content
	if !exists {
		s.order = append(s.order, name)
	}
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangePut, Name: name, Created: !exists})
	return PutConfirmation(name, content), nil
}

// Get returns the content of a note.
func (s *MemoryNoteStore) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.notes[name]
	if !ok {
		return "", notFound(name)
	}
	return content, nil
}

// List returns note names in insertion order.
func (s *MemoryNoteStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names, nil
}

// Delete removes a note.
func (s *MemoryNoteStore) Delete(name string) (string, error) {
	s.mu.Lock()
	if _, ok := s.notes[name]; !ok {
		s.mu.Unlock()
		return "", notFound(name)
	}
	delete(s.notes, name)
	if i := slices.Index(s.order, name); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeDelete, Name: name})
	return DeleteConfirmation(name), nil
}

// Snapshot returns every note in insertion order.
func (s *MemoryNoteStore) Snapshot() ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]Note, 0, len(s.order))
	for _, name := range s.order {
		notes = append(notes, Note{Name: name, Content: s.notes[name]})
	}
	return notes, nil
}
