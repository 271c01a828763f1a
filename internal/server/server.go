// Package server provides the MCP server implementation for the localmcp service.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/localrivet/localmcp/internal/config"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/notestore"
	"github.com/localrivet/localmcp/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// Options configures an MCPNoteServer.
type Options struct {
	Name    string
	Version string

	// Transport is config.TransportStdio or config.TransportHTTP.
	Transport string
	Host      string
	Port      int
	Path      string

	ShutdownTimeout time.Duration

	Logger    *slog.Logger
	Telemetry *telemetry.Collector
}

// DefaultOptions returns stdio options with the default HTTP binding.
func DefaultOptions() Options {
	return Options{
		Name:            "local-mcp",
		Version:         "0.1.0",
		Transport:       config.DefaultTransport,
		Host:            config.DefaultHost,
		Port:            config.DefaultPort,
		Path:            config.DefaultPath,
		ShutdownTimeout: config.DefaultShutdownTimeoutSeconds * time.Second,
	}
}

// OptionsFromConfig maps the transport section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Transport = cfg.Transport.Mode
	opts.Host = cfg.Transport.Host
	opts.Port = cfg.Transport.Port
	opts.Path = cfg.Transport.Path
	opts.ShutdownTimeout = cfg.ShutdownTimeout()
	return opts
}

// MCPNoteServer implements the NoteToolServer interface on the MCP Go SDK.
type MCPNoteServer struct {
	store     notestore.NoteStore
	opts      Options
	logger    *slog.Logger
	telemetry *telemetry.Collector

	registry  *Registry
	mcpServer *mcp.Server
	syncMu    sync.Mutex

	mu         sync.Mutex
	httpServer *http.Server
}

// NewNoteServer creates a new MCPNoteServer instance. Call Initialize before Start.
func NewNoteServer(store notestore.NoteStore, opts Options) *MCPNoteServer {
	defaults := DefaultOptions()
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	if opts.Version == "" {
		opts.Version = defaults.Version
	}
	if opts.Transport == "" {
		opts.Transport = defaults.Transport
	}
	if opts.Path == "" {
		opts.Path = defaults.Path
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaults.ShutdownTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MCPNoteServer{
		store:     store,
		opts:      opts,
		logger:    logger.With("component", "server"),
		telemetry: opts.Telemetry,
	}
}

// Initialize builds the MCP server, installs the capability registry and
// subscribes to note changes so resource listings stay current.
func (s *MCPNoteServer) Initialize() error {
	if s.mcpServer != nil {
		return nil
	}

	s.logger.Info("Initializing MCP note server")

	if s.store == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	// Notes written before Initialize still get a concrete resource.
	names, err := s.store.List()
	if err != nil {
		return errortypes.DatabaseError(err, "failed to list existing notes")
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: s.opts.Name, Version: s.opts.Version}, nil)
	srv.AddReceivingMiddleware(s.requestMiddleware)

	s.registry = NewRegistry(s.store, s.logger)
	s.registry.Install(srv)
	s.mcpServer = srv

	s.store.Subscribe(s.syncNoteResource)
	for _, name := range names {
		if err := s.syncNoteResource(notestore.ChangeEvent{Kind: notestore.ChangePut, Name: name}); err != nil {
			s.logger.Warn("Skipping note resource", "note_name", name, "error", err)
		}
	}

	s.logger.Info("MCP note server initialized successfully", "capability_count", len(s.registry.Capabilities()))
	return nil
}

// syncNoteResource mirrors a note's current state as a concrete resource.
// Events from concurrent writers can arrive out of order, so the store is
// consulted under syncMu rather than trusting the event kind. Adding or
// removing a resource makes the SDK send notifications/resources/list_changed.
func (s *MCPNoteServer) syncNoteResource(event notestore.ChangeEvent) error {
	uri, err := NoteURI(event.Name)
	if err != nil {
		return err
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	_, err = s.store.Get(event.Name)
	switch {
	case err == nil:
		s.mcpServer.AddResource(&mcp.Resource{
			URI:         uri,
			Name:        event.Name,
			Description: fmt.Sprintf("Note '%s'", event.Name),
			MIMEType:    noteMIMEType,
		}, s.registry.readNote)
	case errors.Is(err, notestore.ErrNoteNotFound):
		s.mcpServer.RemoveResources(uri)
	default:
		return err
	}
	return nil
}

// MCPServer returns the underlying SDK server, or nil before Initialize.
func (s *MCPNoteServer) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Registry returns the installed capability registry, or nil before Initialize.
func (s *MCPNoteServer) Registry() *Registry {
	return s.registry
}

// Start serves on the configured transport until ctx is cancelled or the
// transport ends. Bind failures are reported as startup errors.
func (s *MCPNoteServer) Start(ctx context.Context) error {
	if s.mcpServer == nil {
		return errortypes.StartupError(ErrServerNotInitialized, "cannot start server")
	}

	switch s.opts.Transport {
	case config.TransportStdio:
		return s.ServeStdio(ctx)
	case config.TransportHTTP:
		return s.ListenAndServe(ctx)
	default:
		return errortypes.StartupError(fmt.Errorf("unknown transport %q", s.opts.Transport), "cannot start server")
	}
}

// ServeStdio runs the server over stdin/stdout.
func (s *MCPNoteServer) ServeStdio(ctx context.Context) error {
	s.logger.Info("Starting MCP note server", "transport", config.TransportStdio)
	return s.run(ctx, &mcp.StdioTransport{})
}

// run serves a single session on transport.
func (s *MCPNoteServer) run(ctx context.Context, transport mcp.Transport) error {
	err := s.mcpServer.Run(ctx, transport)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		s.logger.Info("MCP session ended")
		return nil
	}
	return errortypes.NetworkError(err, "MCP session failed")
}

// ListenAndServe binds host:port and serves the HTTP transport.
func (s *MCPNoteServer) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errortypes.StartupError(err, fmt.Sprintf("failed to listen on %s", addr)).
			WithField("address", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the HTTP transport on ln until ctx is cancelled or Stop is called.
func (s *MCPNoteServer) Serve(ctx context.Context, ln net.Listener) error {
	if s.mcpServer == nil {
		ln.Close()
		return errortypes.StartupError(ErrServerNotInitialized, "cannot serve HTTP")
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	s.logger.Info("Starting MCP note server", "transport", config.TransportHTTP,
		"address", ln.Addr().String(), "path", s.opts.Path, "health", config.HealthPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errortypes.NetworkError(err, "HTTP server failed")
	case <-ctx.Done():
		return s.Stop()
	}
}

// Handler returns the HTTP handler: the MCP endpoint at the configured path
// plus the liveness check.
func (s *MCPNoteServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.opts.Path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil))
	mux.HandleFunc(config.HealthPath, handleHealth)
	if s.opts.Path != "/" {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			HandleError(w, errortypes.NotFoundError(fmt.Errorf("no handler for %s", r.URL.Path), "unknown HTTP path").
				WithField("path", r.URL.Path))
		})
	}
	return recoverHTTP(mux)
}

// handleHealth answers liveness probes independently of note store state.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		HandleMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		io.WriteString(w, "OK")
	}
}

// Stop gracefully shuts down the HTTP server, bounded by the shutdown timeout.
// It is a no-op for stdio, which ends when stdin closes.
func (s *MCPNoteServer) Stop() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping MCP note server", "timeout", s.opts.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		httpServer.Close()
		return errortypes.NetworkError(err, "HTTP server shutdown incomplete")
	}
	return nil
}
