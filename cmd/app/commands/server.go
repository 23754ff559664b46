package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/medledger/internal/app"
	"github.com/allisson/medledger/internal/config"
)

// RunServer starts the operational HTTP server and the integrity monitor, and blocks
// until SIGINT/SIGTERM or until either of them fails.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("db_driver", cfg.DBDriver),
	)
	defer CloseContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	monitor, err := container.IntegrityMonitor()
	if err != nil {
		return fmt.Errorf("failed to initialize integrity monitor: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if cfg.IntegrityCheckInterval > 0 {
		group.Go(func() error {
			if err := monitor.Start(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("integrity monitor error: %w", err)
			}
			return nil
		})
	} else {
		logger.Warn("integrity monitor disabled")
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}
