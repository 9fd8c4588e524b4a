// Live map web server
// Serves the aircraft map page and a read-only JSON API over TELEX
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/telex-livemap/internal/logging"
	"github.com/unklstewy/telex-livemap/internal/server"
	"github.com/unklstewy/telex-livemap/pkg/config"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	initConfig = flag.Bool("init-config", false, "Write the default configuration to -config and exit")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if *initConfig {
		if err := config.DefaultConfig().Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Logging, os.Stderr)
	defer closer.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	client := telex.NewClient(telex.Config{
		BaseURL:           cfg.Telex.BaseURL,
		PageSize:          cfg.Telex.PageSize,
		Timeout:           time.Duration(cfg.Telex.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Telex.RequestsPerSecond,
	})
	defer client.Close()

	srv := server.New(cfg, client, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("telex", cfg.Telex.BaseURL).
			Str("static_dir", cfg.Server.StaticDir).
			Msg("server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return eg.Wait()
}
