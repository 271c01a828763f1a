package server

import "context"

// NoteToolServer defines the interface for the MCP server that exposes the
// note tools, resources and prompts to MCP clients.
type NoteToolServer interface {
	// Initialize builds the MCP server and installs the capability registry.
	Initialize() error

	// Start serves on the configured transport until ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the HTTP listener, if any.
	Stop() error
}

var _ NoteToolServer = (*MCPNoteServer)(nil)
