package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/localrivet/localmcp"
	"github.com/localrivet/localmcp/internal/config"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/logger"
	"github.com/spf13/cobra"
)

// rootFlags holds the command line overrides. Only flags the user set are applied.
type rootFlags struct {
	configPath string
	transport  string
	host       string
	port       int
	path       string
	store      string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "localmcp",
		Short: "A demonstration MCP server with notes, calculators and a summarize prompt",
		Long: `localmcp serves an in-memory note store, an addition tool and a BMI
calculator over the Model Context Protocol, on stdio or streamable HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", config.DefaultConfigFilename, "Path to the JSON config file")
	f.StringVar(&flags.transport, "transport", config.DefaultTransport, "Transport to serve on (stdio or http)")
	f.StringVar(&flags.host, "host", config.DefaultHost, "Host the HTTP transport binds to")
	f.IntVar(&flags.port, "port", config.DefaultPort, "Port the HTTP transport binds to")
	f.StringVar(&flags.path, "path", config.DefaultPath, "HTTP path of the MCP endpoint")
	f.StringVar(&flags.store, "store", config.DefaultStoreBackend, "Note store backend (memory or sqlite)")
	f.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "Log level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	f.StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "Log format (text or json)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// resolveConfig loads the config file and environment, then applies the flags the user set.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	bootstrap := logger.New(logger.DefaultConfig())

	cfg, err := config.LoadConfigWithPath(flags.configPath, bootstrap)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("transport") {
		cfg.Transport.Mode = flags.transport
	}
	if f.Changed("host") {
		cfg.Transport.Host = flags.host
	}
	if f.Changed("port") {
		cfg.Transport.Port = flags.port
	}
	if f.Changed("path") {
		cfg.Transport.Path = flags.path
	}
	if f.Changed("store") {
		cfg.Store.Backend = flags.store
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	appLogger := logger.New(cfg.LoggerConfig())
	logger.SetDefaultLogger(appLogger)

	appLogger.Info("localmcp - Starting...", "version", localmcp.Version,
		"transport", cfg.Transport.Mode, "log_level", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := localmcp.NewServer(localmcp.ServerOptions{Config: cfg, Logger: appLogger})
	if err != nil {
		return err
	}

	startErr := srv.Start(ctx)
	if err := srv.Stop(); err != nil && startErr == nil {
		return err
	}
	return startErr
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if errortypes.IsStartupError(err) {
			logger.Critical(slog.Default(), "Startup failed", "error", err)
		} else {
			errortypes.LogError(slog.Default(), err)
		}
		os.Exit(1)
	}
}
