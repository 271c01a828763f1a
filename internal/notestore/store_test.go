package notestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns a constructor per NoteStore implementation so every
// behaviour below is checked against each of them.
func backends() map[string]func(t *testing.T) NoteStore {
	return map[string]func(t *testing.T) NoteStore{
		"memory": func(t *testing.T) NoteStore {
			return NewMemoryNoteStore(quietLogger())
		},
		"sqlite": func(t *testing.T) NoteStore {
			return NewSQLiteNoteStore(quietLogger())
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store NoteStore)) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.Initialize())
			t.Cleanup(func() { store.Close() })
			fn(t, store)
		})
	}
}

func TestPutThenGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		cases := []struct{ name, content string }{
			{"demo", "hello"},
			{"", "empty name"},
			{"blank", ""},
			{"unicode ✓", "multi\nline"},
		}
		for _, c := range cases {
			msg, err := store.Put(c.name, c.content)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("Added note '%s' with content: %s", c.name, c.content), msg)

			got, err := store.Get(c.name)
			require.NoError(t, err)
			assert.Equal(t, c.content, got)
		}
	})
}

func TestMissingNote(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		_, err := store.Get("ghost")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoteNotFound))
		assert.True(t, errortypes.IsNotFoundError(err))
		assert.Equal(t, "note 'ghost': note not found", err.Error())

		_, err = store.Delete("ghost")
		assert.True(t, errors.Is(err, ErrNoteNotFound))

		_, err = store.Put("gone", "x")
		require.NoError(t, err)
		msg, err := store.Delete("gone")
		require.NoError(t, err)
		assert.Equal(t, "Deleted note 'gone'", msg)

		_, err = store.Get("gone")
		assert.True(t, errors.Is(err, ErrNoteNotFound))
		_, err = store.Delete("gone")
		assert.True(t, errors.Is(err, ErrNoteNotFound))
	})
}

func TestOverwrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		_, err := store.Put("n", "c1")
		require.NoError(t, err)
		_, err = store.Put("other", "x")
		require.NoError(t, err)
		_, err = store.Put("n", "c2")
		require.NoError(t, err)

		got, err := store.Get("n")
		require.NoError(t, err)
		assert.Equal(t, "c2", got)

		names, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"n", "other"}, names)
	})
}

func TestListOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		names, err := store.List()
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)

		_, err = store.Put("n1", "a")
		require.NoError(t, err)
		_, err = store.Put("n2", "b")
		require.NoError(t, err)

		names, err = store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"n1", "n2"}, names)

		_, err = store.Delete("n1")
		require.NoError(t, err)

		names, err = store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"n2"}, names)

		snapshot, err := store.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, []Note{{Name: "n2", Content: "b"}}, snapshot)
	})
}

func TestObserverEvents(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		var events []ChangeEvent
		store.Subscribe(func(e ChangeEvent) error {
			events = append(events, e)
			return nil
		})

		_, err := store.Put("a", "1")
		require.NoError(t, err)
		_, err = store.Put("a", "2")
		require.NoError(t, err)
		_, err = store.Delete("a")
		require.NoError(t, err)
		_, err = store.Delete("a")
		require.Error(t, err)

		assert.Equal(t, []ChangeEvent{
			{Kind: ChangePut, Name: "a", Created: true},
			{Kind: ChangePut, Name: "a", Created: false},
			{Kind: ChangeDelete, Name: "a"},
		}, events)
	})
}

func TestObserverFailuresAreSwallowed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		calls := 0
		store.Subscribe(func(ChangeEvent) error {
			calls++
			return errors.New("listener offline")
		})
		store.Subscribe(func(ChangeEvent) error {
			calls++
			panic("listener crashed")
		})
		store.Subscribe(func(ChangeEvent) error {
			calls++
			return nil
		})

		msg, err := store.Put("k", "v")
		require.NoError(t, err)
		assert.Equal(t, "Added note 'k' with content: v", msg)

		_, err = store.Delete("k")
		require.NoError(t, err)
		assert.Equal(t, 6, calls)
	})
}

func TestObserverMayReadStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		var seen string
		store.Subscribe(func(e ChangeEvent) error {
			content, err := store.Get(e.Name)
			seen = content
			return err
		})

		_, err := store.Put("k", "v")
		require.NoError(t, err)
		assert.Equal(t, "v", seen)
	})
}

func TestConcurrentAccess(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store NoteStore) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("note-%d", i)
				_, err := store.Put(name, "x")
				assert.NoError(t, err)
				_, err = store.Get(name)
				assert.NoError(t, err)
				_, err = store.List()
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		names, err := store.List()
		require.NoError(t, err)
		assert.Len(t, names, 20)
	})
}

func TestSQLiteRequiresInitialize(t *testing.T) {
	store := NewSQLiteNoteStore(quietLogger())

	_, err := store.Put("a", "b")
	require.Error(t, err)
	assert.True(t, errortypes.IsDatabaseError(err))

	_, err = store.Get("a")
	assert.True(t, errortypes.IsDatabaseError(err))
	assert.False(t, errors.Is(err, ErrNoteNotFound))
}
