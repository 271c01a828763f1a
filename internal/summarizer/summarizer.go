// Package summarizer renders the summarize-notes prompt from the current
// contents of a note store.
package summarizer

import (
	"strings"

	"github.com/localrivet/localmcp/internal/notestore"
)

const (
	// StyleBrief is the default summary style.
	StyleBrief = "brief"

	// StyleDetailed asks for an extensive summary.
	StyleDetailed = "detailed"
)

const (
	promptHeader = "Here are the current notes to summarize:"
	detailSuffix = " Give extensive details."
)

// RenderNotesPrompt builds the prompt text for the given style and notes.
// Any style other than StyleDetailed produces the brief variant.
func RenderNotesPrompt(style string, notes []notestore.Note) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	if style == StyleDetailed {
		b.WriteString(detailSuffix)
	}
	b.WriteString("\n\n")

	for i, note := range notes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(note.Name)
		b.WriteString(": ")
		b.WriteString(note.Content)
	}

	return b.String()
}

// Render snapshots the store and renders the prompt.
func Render(store notestore.NoteStore, style string) (string, error) {
	notes, err := store.Snapshot()
	if err != nil {
		return "", err
	}
	return RenderNotesPrompt(style, notes), nil
}
