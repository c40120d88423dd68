package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauljones0/greenshelf/internal/checkout"
	"github.com/pauljones0/greenshelf/internal/config"
	"github.com/pauljones0/greenshelf/internal/notifier"
	"github.com/pauljones0/greenshelf/internal/processor"
	"github.com/pauljones0/greenshelf/internal/scheduler"
	"github.com/pauljones0/greenshelf/internal/storage"
)

// productStore is what the server needs from either backend.
type productStore interface {
	processor.ProductStore
	Close() error
}

func main() {
	slog.Info("Starting GreenShelf pricing server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	n := notifier.New(cfg.DiscordWebhookURL)
	p := processor.New(store, n, cfg)
	srv := &Server{
		processor: p,
		checkout:  checkout.New(store, cfg.TaxRate),
	}

	sched := scheduler.New(p, cfg.RepriceInterval, cfg.RepriceDaysThreshold)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      requestLogger(srv.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		<-ctx.Done()
		slog.Info("Received signal, shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	<-schedDone
	slog.Info("Server stopped.")
}

func openStore(ctx context.Context, cfg *config.Config) (productStore, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		slog.Info("Using SQLite store", "path", cfg.SQLitePath)
		return storage.OpenSQLite(cfg.SQLitePath)
	default:
		slog.Info("Using Firestore store", "project", cfg.ProjectID)
		return storage.NewFirestore(ctx, cfg.ProjectID)
	}
}
