package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"taskapi/internal/config"
	"taskapi/internal/handlers"
	"taskapi/internal/logging"
	"taskapi/internal/store"
)

func main() {
	// Configuration
	fs := flag.NewFlagSet("taskapi", flag.ContinueOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal("Failed to load configuration", "err", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if cfg.ConfigFile != "" {
		logger.Info("Loaded config file", "path", cfg.ConfigFile)
	}

	// Initialize store
	s, err := store.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		logger.Fatal("Failed to initialize store", "driver", cfg.StoreDriver, "path", cfg.StorePath, "err", err)
	}
	defer s.Close()

	// Initialize handlers
	h := handlers.New(s, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is listening", "addr", cfg.Addr(), "driver", cfg.StoreDriver, "file", cfg.StorePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
			s.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "err", err)
		}
	}
}
