// Package tools defines the names and data structures of the capabilities
// exposed by the localmcp server.
package tools

const (
	// ToolAddNote is the name of the add-note MCP tool
	ToolAddNote = "add-note"

	// ToolListNotes is the name of the list-notes MCP tool
	ToolListNotes = "list-notes"

	// ToolDeleteNote is the name of the delete-note MCP tool
	ToolDeleteNote = "delete-note"

	// ToolGetNoteContent is the name of the get-note-content MCP tool
	ToolGetNoteContent = "get-note-content"

	// ToolAdd is the name of the add MCP tool
	ToolAdd = "add"

	// ToolCalculateBMI is the name of the calculate-bmi MCP tool
	ToolCalculateBMI = "calculate-bmi"

	// PromptSummarizeNotes is the name of the summarize-notes MCP prompt
	PromptSummarizeNotes = "summarize-notes"

	// NoteURIScheme is the scheme of note resource URIs
	NoteURIScheme = "note"

	// NoteURITemplate addresses a single note by name
	NoteURITemplate = NoteURIScheme + "://{name}"
)

// AddNoteRequest defines the input schema for the add-note tool
type AddNoteRequest struct {
	Name    string `json:"name" jsonschema:"Name of the note"`
	Content string `json:"content" jsonschema:"Content of the note"`
}

// AddNoteResponse defines the output schema for the add-note tool
type AddNoteResponse struct {
	// Name echoes the stored note name
	Name string `json:"name"`

	// Message is the human readable confirmation
	Message string `json:"message"`

	// Digest is a short fingerprint of the stored content
	Digest string `json:"digest"`
}

// ListNotesRequest defines the (empty) input schema for the list-notes tool
type ListNotesRequest struct{}

// ListNotesResponse defines the output schema for the list-notes tool
type ListNotesResponse struct {
	// Result holds note names in insertion order
	Result []string `json:"result"`
}

// NoteNameRequest is the input schema for tools addressing one note by name
type NoteNameRequest struct {
	Name string `json:"name" jsonschema:"Name of the note"`
}

// DeleteNoteResponse defines the output schema for the delete-note tool
type DeleteNoteResponse struct {
	Message string `json:"message"`
}

// GetNoteContentResponse defines the output schema for the get-note-content tool
type GetNoteContentResponse struct {
	Result string `json:"result"`
}

// AddRequest defines the input schema for the add tool
type AddRequest struct {
	A int `json:"a" jsonschema:"First number"`
	B int `json:"b" jsonschema:"Second number"`
}

// AddResponse defines the output schema for the add tool
type AddResponse struct {
	Result int `json:"result"`
}

// CalculateBMIRequest defines the input schema for the calculate-bmi tool
type CalculateBMIRequest struct {
	WeightKg float64 `json:"weight_kg" jsonschema:"Weight in kilograms"`
	HeightM  float64 `json:"height_m" jsonschema:"Height in meters"`
}

// CalculateBMIResponse defines the output schema for the calculate-bmi tool
type CalculateBMIResponse struct {
	Result float64 `json:"result"`
}

// SummarizeNotesArguments are the arguments accepted by the summarize-notes prompt
type SummarizeNotesArguments struct {
	// Style is "brief" (default) or "detailed"
	Style string `json:"style,omitempty"`
}
