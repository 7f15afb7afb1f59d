// Package bot wires the gateway connection, the scheduler and the HTTP API
// together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Gateway is a realtime connection, usually a *discordgo.Session.
type Gateway interface {
	Open() error
	Close() error
}

// Bot runs the application components until its context is cancelled.
type Bot struct {
	logger          *slog.Logger
	gateway         Gateway
	scheduler       *Scheduler
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewBot creates a Bot. server may be nil when the HTTP API is disabled.
func NewBot(logger *slog.Logger, gateway Gateway, scheduler *Scheduler, server *http.Server, shutdownTimeout time.Duration) *Bot {
	return &Bot{
		logger:          logger.With("component", "bot_orchestrator"),
		gateway:         gateway,
		scheduler:       scheduler,
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. Components are stopped before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.gateway.Open(); err != nil {
			return fmt.Errorf("failed to open gateway: %w", err)
		}
		b.logger.Info("Gateway connected")

		<-gCtx.Done()
		if err := b.gateway.Close(); err != nil {
			b.logger.Error("Error closing gateway", "error", err)
		}
		b.logger.Info("Gateway closed")
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.server != nil {
		g.Go(func() error {
			b.logger.Info("Starting HTTP API", "addr", b.server.Addr)
			if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api stopped: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), b.shutdownTimeout)
			defer cancel()
			if err := b.server.Shutdown(shutdownCtx); err != nil {
				b.logger.Error("Error shutting down HTTP API", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
