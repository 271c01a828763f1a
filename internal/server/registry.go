package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/localrivet/localmcp/internal/calculator"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/notestore"
	"github.com/localrivet/localmcp/internal/summarizer"
	"github.com/localrivet/localmcp/internal/tools"
	"github.com/localrivet/localmcp/internal/util"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CapabilityKind classifies a registry entry.
type CapabilityKind string

// Capability kinds
const (
	KindTool             CapabilityKind = "tool"
	KindResourceTemplate CapabilityKind = "resource_template"
	KindPrompt           CapabilityKind = "prompt"
)

const noteMIMEType = "text/plain"

// Capability is one named entry of the registry, bound to the MCP runtime by Install.
type Capability struct {
	Kind        CapabilityKind
	Name        string
	Description string

	install func(*mcp.Server)
}

// Registry is the static table of capabilities served by localmcp.
type Registry struct {
	store        notestore.NoteStore
	logger       *slog.Logger
	capabilities []Capability
}

// NewRegistry builds the capability table over store.
func NewRegistry(store notestore.NoteStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{store: store, logger: logger}

	r.capabilities = []Capability{
		{
			Kind:        KindResourceTemplate,
			Name:        tools.NoteURITemplate,
			Description: "Return the content of a note by name",
			install: func(s *mcp.Server) {
				s.AddResourceTemplate(&mcp.ResourceTemplate{
					URITemplate: tools.NoteURITemplate,
					Name:        "note",
					Description: "Return the content of a note by name",
					MIMEType:    noteMIMEType,
				}, r.readNote)
			},
		},
		{
			Kind:        KindPrompt,
			Name:        tools.PromptSummarizeNotes,
			Description: "Return a prompt asking the LLM to summarize all notes in the desired style",
			install: func(s *mcp.Server) {
				s.AddPrompt(&mcp.Prompt{
					Name:        tools.PromptSummarizeNotes,
					Description: "Return a prompt asking the LLM to summarize all notes in the desired style",
					Arguments: []*mcp.PromptArgument{{
						Name:        "style",
						Description: "Summary style: brief or detailed",
					}},
				}, r.summarizeNotes)
			},
		},
		toolCapability(&mcp.Tool{Name: tools.ToolAddNote, Description: "Add a new note to the server"}, r.addNote),
		toolCapability(&mcp.Tool{Name: tools.ToolListNotes, Description: "List the names of all notes"}, r.listNotes),
		toolCapability(&mcp.Tool{Name: tools.ToolDeleteNote, Description: "Delete a note by name"}, r.deleteNote),
		toolCapability(&mcp.Tool{Name: tools.ToolGetNoteContent, Description: "Get the content of a note by name"}, r.getNoteContent),
		toolCapability(&mcp.Tool{Name: tools.ToolAdd, Description: "Add two numbers"}, r.add),
		toolCapability(&mcp.Tool{Name: tools.ToolCalculateBMI, Description: "Calculate BMI"}, r.calculateBMI),
	}

	return r
}

func toolCapability[In, Out any](tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) Capability {
	return Capability{
		Kind:        KindTool,
		Name:        tool.Name,
		Description: tool.Description,
		install: func(s *mcp.Server) {
			mcp.AddTool(s, tool, handler)
		},
	}
}

// Capabilities returns a copy of the registry entries in registration order.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, len(r.capabilities))
	copy(out, r.capabilities)
	return out
}

// Lookup finds a capability by name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	for _, c := range r.capabilities {
		if c.Name == name {
			return c, true
		}
	}
	return Capability{}, false
}

// Install registers every capability with the MCP server.
func (r *Registry) Install(s *mcp.Server) {
	for _, c := range r.capabilities {
		c.install(s)
		r.logger.Debug("Registered capability", "kind", c.Kind, "name", c.Name)
	}
	r.logger.Info("Capability registry installed", "capability_count", len(r.capabilities))
}

// NoteURI returns the resource URI for a note name.
func NoteURI(name string) (string, error) {
	uri := tools.NoteURIScheme + "://" + url.PathEscape(name)
	if _, err := url.Parse(uri); err != nil {
		return "", errortypes.ValidationError(err, fmt.Sprintf("note '%s' has no valid resource URI", name)).
			WithField("note_name", name)
	}
	return uri, nil
}

// noteNameFromURI reverses NoteURI. Unescaped names sent by clients are accepted as-is.
func noteNameFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, tools.NoteURIScheme+"://")
	if !ok {
		return "", fmt.Errorf("unsupported resource URI %q", uri)
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw, nil
	}
	return name, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// logFailure logs missing notes as warnings and everything else as errors.
func (r *Registry) logFailure(ctx context.Context, err error) {
	log := r.logger.With("request_id", RequestIDFromContext(ctx))
	if errors.Is(err, notestore.ErrNoteNotFound) {
		log.Warn("Note not found", "error", err)
		return
	}
	errortypes.LogError(log, err)
}

// readNote handles reads of note://{name}.
func (r *Registry) readNote(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name, err := noteNameFromURI(uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	content, err := r.store.Get(name)
	if err != nil {
		r.logFailure(ctx, err)
		if errors.Is(err, notestore.ErrNoteNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: noteMIMEType, Text: content}},
	}, nil
}

// summarizeNotes handles the summarize-notes prompt.
func (r *Registry) summarizeNotes(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args tools.SummarizeNotesArguments
	if req.Params != nil {
		args.Style = req.Params.Arguments["style"]
	}

	text, err := summarizer.Render(r.store, args.Style)
	if err != nil {
		r.logFailure(ctx, err)
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: "Summarize the current notes",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

func (r *Registry) addNote(ctx context.Context, _ *mcp.CallToolRequest, in tools.AddNoteRequest) (*mcp.CallToolResult, tools.AddNoteResponse, error) {
	r.logger.Info("Processing add-note request", "note_name", in.Name, "content_length", len(in.Content))

	msg, err := r.store.Put(in.Name, in.Content)
	if err != nil {
		r.logFailure(ctx, err)
		return nil, tools.AddNoteResponse{}, err
	}

	return textResult(msg), tools.AddNoteResponse{
		Name:    in.Name,
		Message: msg,
		Digest:  util.ContentDigest(in.Name, in.Content),
	}, nil
}

func (r *Registry) listNotes(ctx context.Context, _ *mcp.CallToolRequest, _ tools.ListNotesRequest) (*mcp.CallToolResult, tools.ListNotesResponse, error) {
	names, err := r.store.List()
	if err != nil {
		r.logFailure(ctx, err)
		return nil, tools.ListNotesResponse{}, err
	}
	if names == nil {
		names = []string{}
	}

	r.logger.Debug("Listed notes", "count", len(names))
	return nil, tools.ListNotesResponse{Result: names}, nil
}

func (r *Registry) deleteNote(ctx context.Context, _ *mcp.CallToolRequest, in tools.NoteNameRequest) (*mcp.CallToolResult, tools.DeleteNoteResponse, error) {
	r.logger.Info("Processing delete-note request", "note_name", in.Name)

	msg, err := r.store.Delete(in.Name)
	if err != nil {
		r.logFailure(ctx, err)
		return nil, tools.DeleteNoteResponse{}, err
	}

	return textResult(msg), tools.DeleteNoteResponse{Message: msg}, nil
}

func (r *Registry) getNoteContent(ctx context.Context, _ *mcp.CallToolRequest, in tools.NoteNameRequest) (*mcp.CallToolResult, tools.GetNoteContentResponse, error) {
	content, err := r.store.Get(in.Name)
	if err != nil {
		r.logFailure(ctx, err)
		return nil, tools.GetNoteContentResponse{}, err
	}

	return textResult(content), tools.GetNoteContentResponse{Result: content}, nil
}

func (r *Registry) add(_ context.Context, _ *mcp.CallToolRequest, in tools.AddRequest) (*mcp.CallToolResult, tools.AddResponse, error) {
	sum := calculator.Add(in.A, in.B)
	return textResult(strconv.Itoa(sum)), tools.AddResponse{Result: sum}, nil
}

func (r *Registry) calculateBMI(ctx context.Context, _ *mcp.CallToolRequest, in tools.CalculateBMIRequest) (*mcp.CallToolResult, tools.CalculateBMIResponse, error) {
	bmi, err := calculator.BMI(in.WeightKg, in.HeightM)
	if err != nil {
		r.logger.Warn("Rejected BMI calculation", "weight_kg", in.WeightKg, "height_m", in.HeightM,
			"request_id", RequestIDFromContext(ctx), "error", err)
		return nil, tools.CalculateBMIResponse{}, err
	}

	return textResult(strconv.FormatFloat(bmi, 'g', -1, 64)), tools.CalculateBMIResponse{Result: bmi}, nil
}
