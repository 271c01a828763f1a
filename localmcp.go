// Package localmcp embeds the localmcp note server: an MCP server exposing
// an in-memory note store, two calculator tools, a note resource template
// and a summarize prompt.
package localmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/localrivet/localmcp/internal/config"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/notestore"
	"github.com/localrivet/localmcp/internal/server"
	"github.com/localrivet/localmcp/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the server version reported to MCP clients.
const Version = "0.1.0"

// Config represents the configuration for the localmcp service.
type Config = config.Config

// NoteStore is the note repository served by the tools and resources.
type NoteStore = notestore.NoteStore

// Note is a named piece of text content.
type Note = notestore.Note

// ErrNoteNotFound is matched by errors for absent note names.
var ErrNoteNotFound = notestore.ErrNoteNotFound

// Server represents the localmcp service.
type Server struct {
	config     *config.Config
	store      notestore.NoteStore
	telemetry  *telemetry.Collector
	toolServer *server.MCPNoteServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewServer creates a new localmcp Server with the given options.
// If opts.Config is provided, it will be used directly.
// Otherwise, if opts.ConfigPath is provided, configuration will be loaded from that path.
// If neither is provided, DefaultConfig() will be used.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Debug("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	store, collector, err := CreateComponents(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	serverOpts := server.OptionsFromConfig(cfg)
	serverOpts.Version = Version
	serverOpts.Logger = logger
	serverOpts.Telemetry = collector

	toolServer := server.NewNoteServer(store, serverOpts)
	if err := toolServer.Initialize(); err != nil {
		store.Close()
		collector.Shutdown(context.Background())
		return nil, errortypes.StartupError(err, "failed to initialize MCP note server")
	}

	logger.Info("localmcp server successfully initialized",
		"transport", cfg.Transport.Mode, "store", cfg.Store.Backend)
	return &Server{
		config:     cfg,
		store:      store,
		telemetry:  collector,
		toolServer: toolServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the localmcp service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// SaveConfig writes the configuration to path and returns the JSON content.
func SaveConfig(cfg *Config, path string) ([]byte, error) {
	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to marshal configuration")
	}
	if err := cfg.SaveToFile(path); err != nil {
		return nil, errortypes.ConfigError(err, "failed to save configuration").WithField("path", path)
	}
	return content, nil
}

// NewNoteStore creates and initializes the store for backend ("memory" or "sqlite").
func NewNoteStore(backend string, logger *slog.Logger) (NoteStore, error) {
	var store notestore.NoteStore
	switch backend {
	case config.StoreMemory, "":
		store = notestore.NewMemoryNoteStore(logger)
	case config.StoreSQLite:
		store = notestore.NewSQLiteNoteStore(logger)
	default:
		return nil, errortypes.ConfigError(fmt.Errorf("unknown store backend %q", backend), "failed to create note store")
	}

	if err := store.Initialize(); err != nil {
		return nil, errortypes.StartupError(err, "failed to initialize note store").WithField("backend", backend)
	}
	return store, nil
}

// CreateComponents creates the note store and, when enabled, the telemetry
// collector without creating a server instance.
func CreateComponents(ctx context.Context, cfg *Config, logger *slog.Logger) (NoteStore, *telemetry.Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Initializing note store", "backend", cfg.Store.Backend)
	store, err := NewNoteStore(cfg.Store.Backend, logger.With("component", "store"))
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Telemetry.Enabled {
		return store, nil, nil
	}

	logger.Info("Initializing telemetry", "otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
	collector, err := telemetry.NewCollector(ctx, telemetry.Options{
		ServiceName:  "localmcp",
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		store.Close()
		return nil, nil, errortypes.StartupError(err, "failed to initialize telemetry")
	}
	return store, collector, nil
}

// Start serves on the configured transport until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting localmcp service")
	return s.toolServer.Start(ctx)
}

// Stop shuts down the transport, flushes telemetry and closes the store.
func (s *Server) Stop() error {
	s.logger.Info("Stopping localmcp service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if report, err := s.telemetry.Report(ctx); err != nil {
		s.logger.Warn("Failed to collect telemetry report", "error", err)
	} else if report != "" {
		s.logger.Info("Telemetry summary", "report", report)
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Warn("Failed to shut down telemetry", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", "error", err)
		return err
	}

	s.logger.Info("localmcp service stopped")
	return nil
}

// GetStore returns the note store instance used by the server.
func (s *Server) GetStore() NoteStore {
	return s.store
}

// GetConfig returns the configuration the server was built with.
func (s *Server) GetConfig() *Config {
	return s.config
}

// MCPServer returns the underlying MCP server, for callers that run their own transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.toolServer.MCPServer()
}

// Handler returns the HTTP handler serving the MCP endpoint and the health check.
func (s *Server) Handler() http.Handler {
	return s.toolServer.Handler()
}

// Capabilities returns the names of every registered tool, resource template and prompt.
func (s *Server) Capabilities() []string {
	caps := s.toolServer.Registry().Capabilities()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name
	}
	return names
}
