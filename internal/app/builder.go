package app

import (
	"context"
	"fmt"
	"time"

	"arbiter/internal/arbiter"
	"arbiter/internal/config"
	"arbiter/internal/feedback"
	"arbiter/internal/gateway"
	"arbiter/internal/logger"
	"arbiter/internal/scheduler"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/store/journal"
	adminhttp "arbiter/internal/transport/http"
	"arbiter/internal/tuning"
	"arbiter/internal/weights"
)

const defaultPaperCapital = 100_000

// AppBuilder assembles the runtime: stores, gateways, the arbitration
// manager, the tuning registry, the admin server and the cycle scheduler.
type AppBuilder struct {
	cfg *config.Config

	scoresOverride   gateway.ScoreProvider
	marketOverride   gateway.MarketData
	executorOverride gateway.TradeExecutor
	ledgerOverride   gateway.PositionLedger
}

type AppBuilderOption func(*AppBuilder)

// WithGateways swaps the paper-trading defaults for real collaborators.
func WithGateways(scores gateway.ScoreProvider, market gateway.MarketData, executor gateway.TradeExecutor, ledger gateway.PositionLedger) AppBuilderOption {
	return func(b *AppBuilder) {
		b.scoresOverride = scores
		b.marketOverride = market
		b.executorOverride = executor
		b.ledgerOverride = ledger
	}
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	ws, err := buildWeightStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("weight store init failed: %w", err)
	}
	loop := feedback.NewLoop(cfg.Feedback, ws.GormDB())

	logs, err := decisionlog.NewStore(cfg.Store.DecisionLogPath)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("decision log init failed: %w", err)
	}

	trades, err := journal.NewStore(cfg.Store.JournalPath)
	if err != nil {
		ws.Close()
		logs.Close()
		return nil, fmt.Errorf("trade journal init failed: %w", err)
	}

	scores, market, executor, ledger := b.gateways()

	registry, effective, err := buildTuning(cfg)
	if err != nil {
		ws.Close()
		logs.Close()
		trades.Close()
		return nil, err
	}

	manager := arbiter.NewManager(effective, scores, market, executor, ledger, ws, loop, logs)
	if registry != nil {
		registry.Subscribe(manager.ApplyConfig)
	}

	if history, err := trades.Recent(ctx, cfg.Feedback.Window); err != nil {
		logger.Warnf("app: loading trade journal failed: %v", err)
	} else if len(history) > 0 {
		manager.TuneFeedback(history)
		logger.Infof("app: feedback warmed from %d journaled trades", len(history))
	}

	server, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Manager:  manager,
		Weights:  ws,
		Feedback: loop,
		Logs:     logs,
	})
	if err != nil {
		ws.Close()
		logs.Close()
		trades.Close()
		return nil, fmt.Errorf("admin http init failed: %w", err)
	}

	interval, ok := scheduler.ParseInterval(effective.Arbiter.CycleInterval)
	if !ok {
		interval, err = time.ParseDuration(effective.Arbiter.CycleInterval)
		if err != nil {
			ws.Close()
			logs.Close()
			trades.Close()
			return nil, fmt.Errorf("invalid cycle interval %q", effective.Arbiter.CycleInterval)
		}
	}

	logger.Infof("app: cycle interval %s, %d candidate symbols", interval, len(effective.Arbiter.Symbols))
	return &App{
		cfg:      cfg,
		manager:  manager,
		ledger:   ledger,
		server:   server,
		registry: registry,
		weights:  ws,
		logs:     logs,
		trades:   trades,
		interval: interval,
	}, nil
}

func buildWeightStore(cfg config.StoreConfig) (*weights.Store, error) {
	if cfg.WeightsPath == "" {
		logger.Warnf("app: no weights path configured, weights will not survive restarts")
		return weights.NewMemoryStore(), nil
	}
	return weights.NewStore(cfg.WeightsPath)
}

func buildTuning(cfg *config.Config) (*tuning.Registry, *config.Config, error) {
	if !cfg.Tuning.Enabled {
		return nil, cfg, nil
	}
	registry, err := tuning.NewRegistry(cfg.Tuning.Path, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("tuning registry init failed: %w", err)
	}
	return registry, registry.Current(), nil
}

func (b *AppBuilder) gateways() (gateway.ScoreProvider, gateway.MarketData, gateway.TradeExecutor, gateway.PositionLedger) {
	if b.scoresOverride != nil && b.marketOverride != nil && b.executorOverride != nil && b.ledgerOverride != nil {
		return b.scoresOverride, b.marketOverride, b.executorOverride, b.ledgerOverride
	}
	logger.Infof("app: running against paper gateways (capital %.0f)", float64(defaultPaperCapital))
	fixture := gateway.NewFixtureProvider()
	return fixture, fixture, gateway.LogExecutor{}, gateway.NewPaperLedger(defaultPaperCapital)
}
