package notestore

import (
	"errors"
	"log/slog"
	"sync"

	"crawshaw.io/sqlite"
	"github.com/localrivet/localmcp/internal/errortypes"
)

// memoryDSN keeps the database inside the process; notes never outlive it.
const memoryDSN = ":memory:"

var errNotInitialized = errors.New("sqlite note store is not initialized")

// SQLiteNoteStore is an implementation of NoteStore backed by an in-memory SQLite database.
type SQLiteNoteStore struct {
	observers

	mu   sync.Mutex
	conn *sqlite.Conn
}

// NewSQLiteNoteStore creates a new SQLiteNoteStore instance. Call Initialize before use.
func NewSQLiteNoteStore(logger *slog.Logger) *SQLiteNoteStore {
	return &SQLiteNoteStore{observers: observers{logger: logger}}
}

// Initialize opens the database and creates the notes table.
func (s *SQLiteNoteStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := sqlite.OpenConn(memoryDSN, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open SQLite database")
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return errortypes.DatabaseError(err, "failed to create notes table")
	}

	return nil
}

// createTable creates the notes table. seq preserves first-insertion order.
func (s *SQLiteNoteStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS notes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL
	);`

	stmt, err := s.conn.Prepare(createTableSQL)
	if err != nil {
		return err
	}
	defer stmt.Reset()

	_, err = stmt.Step()
	return err
}

// Close closes the database. All notes are discarded.
func (s *SQLiteNoteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Put inserts or overwrites a note. An overwrite keeps the row's seq.
func (s *SQLiteNoteStore) Put(name, content string) (string, error) {
	created, err := s.put(name, content)
	if err != nil {
		return "", errortypes.DatabaseError(err, "failed to store note").WithField("note_name", name)
	}

	s.notify(ChangeEvent{Kind: ChangePut, Name: name, Created: created})
	return PutConfirmation(name, content), nil
}

func (s *SQLiteNoteStore) put(name, content string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return false, errNotInitialized
	}

	if err := s.exec(`UPDATE notes SET content = ? WHERE name = ?;`, content, name); err != nil {
		return false, err
	}
	if s.conn.Changes() > 0 {
		return false, nil
	}

	if err := s.exec(`INSERT INTO notes (name, content) VALUES (?, ?);`, name, content); err != nil {
		return false, err
	}
	return true, nil
}

// exec runs a statement that returns no rows. Parameters are bound as text.
func (s *SQLiteNoteStore) exec(query string, args ...string) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Reset()

	// Bind parameters - indices in sqlite are 1-based
	for i, arg := range args {
		stmt.BindText(i+1, arg)
	}

	_, err = stmt.Step()
	return err
}

// Get returns the content of a note.
func (s *SQLiteNoteStore) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", errortypes.DatabaseError(errNotInitialized, "failed to read note")
	}

	stmt, err := s.conn.Prepare(`SELECT content FROM notes WHERE name = ?;`)
	if err != nil {
		return "", errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, name)

	hasRow, err := stmt.Step()
	if err != nil {
		return "", errortypes.DatabaseError(err, "failed to read note").WithField("note_name", name)
	}
	if !hasRow {
		return "", notFound(name)
	}

	// Column indices are 0-based
	return stmt.ColumnText(0), nil
}

// List returns note names in insertion order.
func (s *SQLiteNoteStore) List() ([]string, error) {
	notes, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(notes))
	for i, note := range notes {
		names[i] = note.Name
	}
	return names, nil
}

// Delete removes a note.
func (s *SQLiteNoteStore) Delete(name string) (string, error) {
	removed, err := s.delete(name)
	if err != nil {
		return "", errortypes.DatabaseError(err, "failed to delete note").WithField("note_name", name)
	}
	if !removed {
		return "", notFound(name)
	}

	s.notify(ChangeEvent{Kind: ChangeDelete, Name: name})
	return DeleteConfirmation(name), nil
}

func (s *SQLiteNoteStore) delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return false, errNotInitialized
	}

	if err := s.exec(`DELETE FROM notes WHERE name = ?;`, name); err != nil {
		return false, err
	}
	return s.conn.Changes() > 0, nil
}

// Snapshot returns every note in insertion order.
func (s *SQLiteNoteStore) Snapshot() ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, errortypes.DatabaseError(errNotInitialized, "failed to list notes")
	}

	stmt, err := s.conn.Prepare(`SELECT name, content FROM notes ORDER BY seq;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	notes := []Note{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to list notes")
		}
		if !hasRow {
			break
		}
		notes = append(notes, Note{Name: stmt.ColumnText(0), Content: stmt.ColumnText(1)})
	}

	return notes, nil
}
