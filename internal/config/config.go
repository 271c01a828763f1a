package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/logger"
)

// Config represents the localmcp configuration
type Config struct {
	// Transport selects and binds the protocol transport.
	Transport struct {
		// Mode is the transport to serve on ("stdio" or "http").
		Mode string `json:"mode" env:"TRANSPORT" validate:"required"`

		// Host is the interface the HTTP transport binds to.
		Host string `json:"host" env:"HOST"`

		// Port is the TCP port the HTTP transport binds to.
		Port int `json:"port" env:"PORT" validate:"min:1"`

		// Path is the HTTP path the MCP endpoint is mounted on.
		Path string `json:"path" env:"HTTP_PATH"`

		// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
		ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`
	} `json:"transport"`

	// Store contains note storage configuration.
	Store struct {
		// Backend is the note store engine ("memory" or "sqlite").
		Backend string `json:"backend" env:"STORE_BACKEND"`
	} `json:"store"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level (DEBUG, INFO, WARNING, ERROR, CRITICAL).
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Telemetry contains OpenTelemetry configuration.
	Telemetry struct {
		// Enabled turns on request metrics and tracing.
		Enabled bool `json:"enabled" env:"TELEMETRY_ENABLED"`

		// OTLPEndpoint, when set, exports traces over OTLP/HTTP (host:port).
		OTLPEndpoint string `json:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	} `json:"telemetry"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Transport modes
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Default configuration values
const (
	DefaultConfigFilename         = ".localmcpconfig"
	DefaultEnvPrefix              = "LOCALMCP"
	DefaultTransport              = TransportStdio
	DefaultHost                   = "localhost"
	DefaultPort                   = 8000
	DefaultPath                   = "/mcp"
	DefaultShutdownTimeoutSeconds = 10
	DefaultStoreBackend           = StoreMemory
	DefaultLogLevel               = "INFO"
	DefaultLogFormat              = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Transport.Mode = DefaultTransport
	config.Transport.Host = DefaultHost
	config.Transport.Port = DefaultPort
	config.Transport.Path = DefaultPath
	config.Transport.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	config.Store.Backend = DefaultStoreBackend
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig(log *slog.Logger) (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename, log)
}

// LoadConfigWithPath loads the configuration from a specific path.
// A missing file is not an error: defaults and environment variables apply.
func LoadConfigWithPath(configPath string, log *slog.Logger) (*Config, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			log.Debug("Found config file", "path", foundPath)
		}
	}

	loader := configurator.New(log).
		WithProvider(configurator.NewDefaultProvider())

	if _, err := os.Stat(configPath); err == nil {
		log.Info("Loading configuration", "path", configPath)
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	} else {
		log.Debug("Config file not found, using defaults and environment", "path", configPath)
	}

	loader = loader.
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, errortypes.ConfigError(err, "failed to load configuration").
			WithField("path", configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// Validate checks enumerated fields and ranges the struct tags cannot express.
func (c *Config) Validate() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return invalid("transport.mode", c.Transport.Mode, "must be stdio or http")
	}

	if c.Transport.Port < 1 || c.Transport.Port > 65535 {
		return invalid("transport.port", strconv.Itoa(c.Transport.Port), "must be between 1 and 65535")
	}

	if !strings.HasPrefix(c.Transport.Path, "/") {
		return invalid("transport.path", c.Transport.Path, "must start with /")
	}
	if c.Transport.Path == HealthPath {
		return invalid("transport.path", c.Transport.Path, "is reserved for the liveness check")
	}

	if c.Transport.ShutdownTimeoutSeconds < 0 {
		return invalid("transport.shutdown_timeout_seconds", strconv.Itoa(c.Transport.ShutdownTimeoutSeconds), "must not be negative")
	}

	switch c.Store.Backend {
	case StoreMemory, StoreSQLite:
	default:
		return invalid("store.backend", c.Store.Backend, "must be memory or sqlite")
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return errortypes.ValidationError(err, "invalid logging.level")
	}
	if _, err := logger.ParseFormat(c.Logging.Format); err != nil {
		return errortypes.ValidationError(err, "invalid logging.format")
	}

	return nil
}

// HealthPath is the fixed liveness endpoint served alongside the HTTP transport.
const HealthPath = "/health"

func invalid(field, value, reason string) error {
	return errortypes.ValidationError(fmt.Errorf("%s %q %s", field, value, reason), "invalid configuration").
		WithField("field", field)
}

// Address returns the host:port the HTTP transport listens on
func (c *Config) Address() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return net.JoinHostPort(c.Transport.Host, strconv.Itoa(c.Transport.Port))
}

// ShutdownTimeout returns the graceful shutdown bound for the HTTP transport
func (c *Config) ShutdownTimeout() time.Duration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.Transport.ShutdownTimeoutSeconds <= 0 {
		return DefaultShutdownTimeoutSeconds * time.Second
	}
	return time.Duration(c.Transport.ShutdownTimeoutSeconds) * time.Second
}

// LoggerConfig converts the logging section into a logger.Config.
// Values are assumed to have passed Validate.
func (c *Config) LoggerConfig() *logger.Config {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	lc := logger.DefaultConfig()
	if level, err := logger.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = level
	}
	if format, err := logger.ParseFormat(c.Logging.Format); err == nil {
		lc.Format = format
	}
	return lc
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
