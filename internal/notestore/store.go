// Package notestore provides the note repository used by the localmcp
// capabilities, along with its change notification hooks.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/localrivet/localmcp/internal/errortypes"
)

// ErrNoteNotFound is matched by every error returned for an absent note name.
var ErrNoteNotFound = errors.New("note not found")

// Note is a named piece of text content.
type Note struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChangeKind describes how the set of notes changed.
type ChangeKind string

const (
	// ChangePut is emitted after a note is created or overwritten.
	ChangePut ChangeKind = "put"
	// ChangeDelete is emitted after a note is removed.
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent is delivered to observers after a mutation has been applied.
type ChangeEvent struct {
	Kind ChangeKind
	Name string
	// Created is true when a put inserted a new name rather than overwriting.
	Created bool
}

// ChangeObserver is notified of structural changes. Returned errors are
// logged by the store and never reach the caller of the mutation.
type ChangeObserver func(ChangeEvent) error

// NoteStore defines the interface for storing and retrieving notes.
type NoteStore interface {
	// Initialize prepares the store for use.
	Initialize() error

	// Close releases any resources held by the store.
	Close() error

	// Put inserts or overwrites a note and returns a confirmation.
	Put(name, content string) (string, error)

	// Get returns the content of a note.
	Get(name string) (string, error)

	// List returns note names in insertion order.
	List() ([]string, error)

	// Delete removes a note and returns a confirmation.
	Delete(name string) (string, error)

	// Snapshot returns every note in insertion order.
	Snapshot() ([]Note, error)

	// Subscribe registers an observer for change events.
	Subscribe(observer ChangeObserver)
}

// PutConfirmation is the text returned by a successful Put.
func PutConfirmation(name, content string) string {
	return fmt.Sprintf("Added note '%s' with content: %s", name, content)
}

// DeleteConfirmation is the text returned by a successful Delete.
func DeleteConfirmation(name string) string {
	return fmt.Sprintf("Deleted note '%s'", name)
}

func notFound(name string) error {
	return errortypes.NotFoundError(ErrNoteNotFound, fmt.Sprintf("note '%s'", name)).
		WithField("note_name", name)
}

// observers holds subscribed callbacks. Stores embed it and call notify
// after releasing their own lock.
type observers struct {
	mu     sync.RWMutex
	list   []ChangeObserver
	logger *slog.Logger
}

// Subscribe registers an observer for change events.
func (o *observers) Subscribe(observer ChangeObserver) {
	if observer == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, observer)
}

func (o *observers) notify(event ChangeEvent) {
	o.mu.RLock()
	list := append([]ChangeObserver(nil), o.list...)
	o.mu.RUnlock()

	for _, observer := range list {
		o.call(observer, event)
	}
}

func (o *observers) call(observer ChangeObserver, event ChangeEvent) {
	log := o.logger
	if log == nil {
		log = slog.Default()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn("Note change observer panicked", "kind", event.Kind, "note_name", event.Name, "panic", r)
		}
	}()

	if err := observer(event); err != nil {
		log.Warn("Note change observer failed", "kind", event.Kind, "note_name", event.Name, "error", err)
	}
}
