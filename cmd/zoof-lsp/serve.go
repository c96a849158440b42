package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/zoof-lsp/internal/config"
	"github.com/ggoodman/zoof-lsp/internal/metrics"
	"github.com/ggoodman/zoof-lsp/lspservice"
	"github.com/ggoodman/zoof-lsp/stdio"
	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/memory"
	"github.com/ggoodman/zoof-lsp/storage/redis"
	"github.com/spf13/cobra"
)

// serveFlags mirror the config fields that can be overridden per run.
type serveFlags struct {
	logLevel    string
	logFormat   string
	logUDP      bool
	logUDPAddr  string
	listen      string
	tcp         bool
	stopOnEOF   bool
	watch       bool
	store       string
	metricsAddr string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", config.FormatText, "Log format on stderr: text or json")
	fs.BoolVar(&f.logUDP, "log-udp", false, "Also send log records over UDP (see 'zoof-lsp logs')")
	fs.StringVar(&f.logUDPAddr, "log-udp-addr", "127.0.0.1:12012", "Destination of UDP log records")
	fs.StringVar(&f.listen, "listen", "", "Serve one TCP connection on this address instead of stdio")
	fs.BoolVar(&f.tcp, "tcp", false, "Shorthand for --listen "+stdio.DefaultTCPAddr)
	fs.BoolVar(&f.stopOnEOF, "stop-on-eof", true, "Stop when the input stream ends")
	fs.BoolVar(&f.watch, "watch", false, "Watch workspace folders for file changes")
	fs.StringVar(&f.store, "store", config.StoreMemory, "Document store: memory or redis")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
}

// apply overrides cfg with the flags set on the command line.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("log-udp") {
		cfg.LogUDP = f.logUDP
	}
	if fs.Changed("log-udp-addr") {
		cfg.LogUDPAddr = f.logUDPAddr
	}
	if fs.Changed("listen") {
		cfg.Listen = f.listen
	}
	if f.tcp && cfg.Listen == "" {
		cfg.Listen = stdio.DefaultTCPAddr
	}
	if fs.Changed("stop-on-eof") {
		cfg.StopOnEOF = f.stopOnEOF
	}
	if fs.Changed("watch") {
		cfg.Watch = f.watch
	}
	if fs.Changed("store") {
		cfg.Store = f.store
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one client (default command)",
		Long: `Serve a single client over stdin/stdout, or over one TCP
connection with --listen or --tcp.

Examples:
  zoof-lsp serve
  zoof-lsp serve --log-udp --log-level=debug
  zoof-lsp serve --tcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	docs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics.serve.fail", slog.String("err", err.Error()))
			}
		}()
	}

	opts := []stdio.Option{
		stdio.WithLogger(log),
		stdio.WithLevelVar(logger.Level),
		stdio.WithStopOnEOF(cfg.StopOnEOF),
		stdio.WithDocuments(docs),
		stdio.WithMetrics(m),
		stdio.WithServerInfo(lspservice.DefaultServerName, version),
		stdio.WithWorkspaceWatch(cfg.Watch),
		stdio.WithContentLimit(cfg.MaxContentLength),
	}

	log.Warn("server.start",
		slog.String("version", version),
		slog.String("store", cfg.Store),
		slog.String("listen", cfg.Listen),
	)
	if cfg.Listen != "" {
		err = stdio.ListenAndServe(ctx, cfg.Listen, nil, opts...)
	} else {
		err = stdio.NewHandler(nil, opts...).Serve(ctx)
	}
	log.Warn("server.stop")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openStore(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.Store {
	case config.StoreRedis:
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("document store: %w", err)
		}
		return s, nil
	default:
		s, err := memory.New(cfg.MaxDocuments)
		if err != nil {
			return nil, fmt.Errorf("document store: %w", err)
		}
		return s, nil
	}
}
