// Package app wires configuration, stores, gateways, the arbitration
// manager and the admin surface into a runnable process.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"arbiter/internal/arbiter"
	"arbiter/internal/config"
	"arbiter/internal/gateway"
	"arbiter/internal/logger"
	"arbiter/internal/scheduler"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/store/journal"
	adminhttp "arbiter/internal/transport/http"
	"arbiter/internal/tuning"
	"arbiter/internal/weights"
)

// App owns the assembled runtime and its lifecycle.
type App struct {
	cfg      *config.Config
	manager  *arbiter.Manager
	ledger   gateway.PositionLedger
	server   *adminhttp.Server
	registry *tuning.Registry
	weights  *weights.Store
	logs     *decisionlog.Store
	trades   *journal.Store
	interval time.Duration

	journaled int
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the admin server and the cycle scheduler, blocking until the
// context is cancelled or either fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Run(ctx); err != nil {
			return fmt.Errorf("admin http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, a.interval, 0)
		sched.RunImmediately = true
		sched.Start(func() { a.cycle(ctx) })
		return nil
	})

	err := group.Wait()
	a.Close()
	return err
}

func (a *App) cycle(ctx context.Context) {
	a.manager.RunCycle(ctx, a.manager.Symbols())

	history := a.ledger.History()
	for _, trade := range history[a.journaled:] {
		if err := a.trades.Append(ctx, trade); err != nil {
			logger.Warnf("app: journaling closed trade failed: %v", err)
		}
	}
	a.journaled = len(history)

	trades, err := a.trades.Recent(ctx, a.cfg.Feedback.Window)
	if err != nil {
		logger.Warnf("app: reading trade journal failed, tuning from this run only: %v", err)
		trades = history
	}
	a.manager.TuneFeedback(trades)
}

// Manager exposes the arbitration manager for test harnesses.
func (a *App) Manager() *arbiter.Manager {
	if a == nil {
		return nil
	}
	return a.manager
}

// Close releases the backing stores.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.weights != nil {
		if err := a.weights.Close(); err != nil {
			logger.Warnf("app: closing weight store failed: %v", err)
		}
	}
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			logger.Warnf("app: closing decision log failed: %v", err)
		}
	}
	if a.trades != nil {
		if err := a.trades.Close(); err != nil {
			logger.Warnf("app: closing trade journal failed: %v", err)
		}
	}
}
