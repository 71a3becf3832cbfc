package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ent0n29/interviewer/internal/app"
	"github.com/ent0n29/interviewer/internal/config"
	"github.com/ent0n29/interviewer/internal/logging"
)

type options struct {
	envFile  string
	logLevel string
	bind     string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "Time-boxed AI interview service",
		Long: `interviewer runs a mock job interview over HTTP and websocket. Each
interview is driven by a job description and a résumé and is bounded by
INTERVIEW_DURATION minutes.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	root.Flags().StringVar(&opts.bind, "bind", "", "listen address override, e.g. :8080")

	root.AddCommand(newCheckCommand(opts))
	return root
}

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and connect to the configured stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			built, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer built.Cleanup()
			fmt.Fprintf(cmd.OutOrStdout(), "llm provider: %s\nstore: %s\ninterview duration: %s\n",
				built.Provider, built.Store, cfg.InterviewDuration)
			return nil
		},
	}
}

func loadConfig(opts *options) (config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if lvl := strings.TrimSpace(opts.logLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	if bind := strings.TrimSpace(opts.bind); bind != "" {
		cfg.BindAddr = bind
	}
	logging.Configure(cfg.LogLevel, os.Stderr)
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	built, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logging.Warn("cleanup failed", "err", err)
		}
	}()

	logging.Info("interviewer configured",
		"llm", built.Provider,
		"store", built.Store,
		"duration", cfg.InterviewDuration,
		"auth", cfg.APIKey != "",
	)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	listenErr := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-listenErr:
		if ok {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	case <-sigCh:
		logging.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("graceful shutdown failed", "err", err)
		_ = httpServer.Close()
	}

	logging.Info("shutdown complete")
	return nil
}
