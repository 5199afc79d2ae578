package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobertWHurst/dromos"
	"github.com/RobertWHurst/dromos/internal/config"
	"github.com/RobertWHurst/dromos/internal/demo"
	"github.com/RobertWHurst/dromos/internal/logging"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dromos",
		Short: "Serve the dromos demo application",
		Long: `dromos dispatches HTTP requests and websocket upgrades to handlers
resolved one path segment at a time.

Configuration is read from the environment (DROMOS_*) and from a .env file
in the working directory. Flags override both.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRoutesCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (DROMOS_ADDR)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error (DROMOS_LOG_LEVEL)")
	cmd.Flags().String("log-format", "", "Log format: json or console (DROMOS_LOG_FORMAT)")
	cmd.Flags().String("nats-url", "", "NATS server for the /relay endpoint (DROMOS_NATS_URL)")

	return cmd
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the bindings of the demo root router as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			routeDescriptors := demo.NewRouter(demo.Options{}).RouteDescriptors()
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(routeDescriptors)
		},
	}
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}
	if natsURL, _ := cmd.Flags().GetString("nats-url"); natsURL != "" {
		cfg.NATSURL = natsURL
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	demoOptions := demo.Options{Logger: logger, NATSSubject: cfg.NATSSubject}
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("dromos"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsConn.Close()
		demoOptions.NATS = natsConn
		logger.Info("relay enabled", zap.String("nats", cfg.NATSURL), zap.String("subject", cfg.NATSSubject))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := dromos.NewServer(demo.NewRouter(demoOptions),
		dromos.WithLogger(logger),
		dromos.WithMetrics(registry),
		dromos.WithOrigins(cfg.Origins...),
		dromos.WithReadLimit(cfg.ReadLimit),
		dromos.WithBodyLimit(cfg.BodyLimit),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", server)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
