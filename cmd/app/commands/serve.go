package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/uapf-mcp/internal/app"
)

// RunServe validates the configuration, resolves the scope against the engine
// and serves the configured transport until SIGINT/SIGTERM, a server error, or
// the end of input in stdio mode. Every startup step fails before any listener
// is opened.
func RunServe(ctx context.Context, container *app.Container, version string) error {
	cfg := container.Config()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gin.SetMode(cfg.GetGinMode())

	logger := container.Logger()
	logger.Info("starting uapf-mcp",
		slog.String("version", version),
		slog.String("transport", cfg.Transport),
		slog.String("engine_url", cfg.EngineURL),
		slog.String("security_mode", cfg.GetSecurityMode().String()),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.Transport(ctx)
	if err != nil {
		closeContainer(container, logger)
		return fmt.Errorf("failed to initialize transport: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		closeContainer(container, logger)
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("transport error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		return container.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
