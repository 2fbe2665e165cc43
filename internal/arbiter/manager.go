// Package arbiter runs the trading cycle: fan proposals out to the strategy
// agents, resolve conflicts, size the survivor, execute, and record the
// outcome. Nothing that happens inside a cycle is allowed to escape as an
// error.
package arbiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"arbiter/internal/agent"
	"arbiter/internal/config"
	"arbiter/internal/feedback"
	"arbiter/internal/gateway"
	"arbiter/internal/logger"
	"arbiter/internal/pkg/circuit"
	"arbiter/internal/pkg/trading"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/types"
	"arbiter/internal/weights"
)

const (
	candleFetchLimit = 60
	breakerThreshold = 3
	breakerCooldown  = 30 * time.Second
)

// Manager owns the arbitration cycle and the mutating entry points around
// it. A single mutex serializes RunCycle, TuneFeedback, UpdateWeights, and
// ApplyConfig so configuration never changes mid-cycle.
type Manager struct {
	mu sync.Mutex

	arbiterCfg config.ArbiterConfig
	priority   []types.AgentID
	agents     []agent.StrategyAgent

	scores   gateway.ScoreProvider
	market   gateway.MarketData
	executor gateway.TradeExecutor
	ledger   gateway.PositionLedger

	weights  *weights.Store
	feedback *feedback.Loop
	log      *decisionlog.Store
	breaker  *circuit.Breaker
}

// NewManager wires a manager from configuration and collaborators. The agent
// set is fixed: swing, scalp, hedge.
func NewManager(
	cfg *config.Config,
	scores gateway.ScoreProvider,
	market gateway.MarketData,
	executor gateway.TradeExecutor,
	ledger gateway.PositionLedger,
	ws *weights.Store,
	loop *feedback.Loop,
	log *decisionlog.Store,
) *Manager {
	m := &Manager{
		scores:   scores,
		market:   market,
		executor: executor,
		ledger:   ledger,
		weights:  ws,
		feedback: loop,
		log:      log,
		breaker:  circuit.NewBreaker("executor", breakerThreshold, breakerCooldown),
	}
	m.applyConfigLocked(cfg)
	return m
}

// ApplyConfig swaps thresholds and priority for subsequent cycles. Called by
// the tuning registry on hot reload.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyConfigLocked(cfg)
	logger.Infof("arbiter: configuration applied (priority=%v)", m.arbiterCfg.Priority)
}

func (m *Manager) applyConfigLocked(cfg *config.Config) {
	m.arbiterCfg = cfg.Arbiter
	m.priority = parsePriority(cfg.Arbiter.Priority)
	m.agents = []agent.StrategyAgent{
		agent.NewSwing(cfg.Agents.Swing, cfg.Agents.MacroRisk, cfg.Consensus),
		agent.NewScalp(cfg.Agents.Scalp, cfg.Agents.MacroRisk, cfg.Consensus),
		agent.NewHedge(cfg.Agents.Hedge),
	}
}

// Symbols returns the configured candidate list.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.arbiterCfg.Symbols))
	copy(out, m.arbiterCfg.Symbols)
	return out
}

// TuneFeedback recomputes the per-agent risk multipliers from closed trades.
func (m *Manager) TuneFeedback(history []types.ClosedTrade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback.Tune(history)
}

// UpdateWeights stores a new weight vector for (symbol, agent).
func (m *Manager) UpdateWeights(ctx context.Context, symbol string, agentID types.AgentID, v types.WeightVector, reasoning string) (types.WeightVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weights.Update(ctx, symbol, agentID, v, reasoning)
}

// RunCycle evaluates every candidate symbol in order, strictly sequentially,
// fanning out to all agents per symbol. It never returns an error: per-symbol
// failures degrade to logged skips.
func (m *Manager) RunCycle(ctx context.Context, symbols []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.withHedgeInstrument(symbols)
	if len(candidates) == 0 {
		logger.Debugf("arbiter: no candidate symbols this cycle")
		return
	}
	logger.Infof("arbiter: cycle start over %d symbols", len(candidates))

	for _, symbol := range candidates {
		if ctx.Err() != nil {
			logger.Warnf("arbiter: cycle aborted: %v", ctx.Err())
			return
		}
		m.evaluateSymbol(ctx, symbol)
	}
}

// withHedgeInstrument appends the hedge agent's instrument so the hedge is
// always evaluated, deduplicating case-insensitively.
func (m *Manager) withHedgeInstrument(symbols []string) []string {
	out := make([]string, 0, len(symbols)+1)
	seen := make(map[string]bool, len(symbols)+1)
	add := func(s string) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range symbols {
		add(s)
	}
	for _, a := range m.agents {
		if h, ok := a.(*agent.Hedge); ok {
			add(h.Instrument())
		}
	}
	return out
}

func (m *Manager) evaluateSymbol(ctx context.Context, symbol string) {
	traceID := uuid.NewString()
	base := m.gatherContext(ctx, symbol)

	if base.PriceOK && base.Position != nil {
		m.ledger.MarkPrice(symbol, base.Price)
		if pos, ok := m.ledger.Open(symbol); ok {
			base.Position = &pos
		}
	}

	proposals := m.fanOut(ctx, symbol, base)
	res := resolve(proposals, base.Position, m.priority)

	for _, d := range res.dropped {
		logger.Infof("arbiter: %s %s/%s dropped: %s", symbol, d.proposal.Agent, d.proposal.Action, d.note)
		m.record(ctx, traceID, symbol, d.proposal, base, 0, d.note)
	}
	if res.winner == nil {
		return
	}
	m.executeProposal(ctx, traceID, symbol, *res.winner, base)
}

// gatherContext pulls every collaborator input once; missing data stays nil.
func (m *Manager) gatherContext(ctx context.Context, symbol string) agent.Context {
	actx := agent.Context{Feedback: 1.0}

	if price, ok := m.market.Price(ctx, symbol); ok {
		actx.Price = price
		actx.PriceOK = true
	}
	if candles, ok := m.market.Candles(ctx, symbol, candleFetchLimit); ok {
		actx.Candles = candles
	}
	if score, ok := m.scores.FundamentalScore(ctx, symbol); ok {
		actx.Fundamental = &score
	}
	if report, ok := m.scores.TechnicalScore(ctx, symbol); ok {
		actx.Technical = &report.Score
		actx.Pattern = report.PatternScore
	}
	if rating, ok := m.scores.MacroRating(ctx); ok {
		actx.Macro = &rating.Score
	}
	if insight, ok := m.scores.NewsInsight(ctx, symbol); ok {
		actx.News = &insight.Score
	}
	if pos, ok := m.ledger.Open(symbol); ok {
		actx.Position = &pos
	}
	actx.Equity = m.ledger.Equity()
	return actx
}

// fanOut runs every agent concurrently against its own copy of the context.
// A panicking agent contributes a skip proposal instead of killing the cycle.
func (m *Manager) fanOut(ctx context.Context, symbol string, base agent.Context) []types.Proposal {
	proposals := make([]types.Proposal, len(m.agents))
	var g errgroup.Group
	for i, a := range m.agents {
		i, a := i, a
		actx := base
		actx.Weights = m.weights.Get(symbol, a.ID())
		actx.Feedback = m.feedback.Multiplier(a.ID())
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("arbiter: %s agent panicked on %s: %v", a.ID(), symbol, r)
					proposals[i] = types.SkipProposal(a.ID(), symbol, fmt.Sprintf("agent failure: %v", r))
				}
			}()
			proposals[i] = a.Propose(ctx, symbol, actx)
			return nil
		})
	}
	_ = g.Wait()
	return proposals
}

func (m *Manager) executeProposal(ctx context.Context, traceID, symbol string, p types.Proposal, base agent.Context) {
	if !base.PriceOK {
		m.record(ctx, traceID, symbol, p, base, 0, "not executed: no price")
		return
	}
	qty := m.sizeProposal(p, base)
	if qty <= 0 {
		m.record(ctx, traceID, symbol, p, base, 0, "not executed: sized to zero")
		return
	}

	note := m.dispatch(ctx, traceID, symbol, p, base, qty)
	m.record(ctx, traceID, symbol, p, base, qty, note)
}

// sizeProposal turns a proposal into a quantity: explicit quantities pass
// through (capped to the held amount on sells), exposure targets convert at
// the current price, and every buy respects the per-symbol equity cap.
func (m *Manager) sizeProposal(p types.Proposal, base agent.Context) float64 {
	switch p.Action {
	case types.ActionSell:
		if base.Position == nil {
			return 0
		}
		qty := base.Position.Quantity
		if p.Quantity != nil {
			qty = *p.Quantity
		}
		return trading.CapCloseQuantity(qty, base.Position.Quantity)
	case types.ActionBuy:
		var qty float64
		if p.Quantity != nil {
			qty = *p.Quantity
		} else if p.TargetExposurePct != nil {
			qty = trading.QuantityForExposure(base.Equity, *p.TargetExposurePct, base.Price)
		}
		return trading.CapQuantity(qty, base.Price, base.Equity, m.arbiterCfg.MaxSymbolExposurePct)
	default:
		return 0
	}
}

// dispatch executes the sized order behind the circuit breaker and applies
// the ledger effect on success. The returned note lands in the decision
// record; execution failures never propagate further.
func (m *Manager) dispatch(ctx context.Context, traceID, symbol string, p types.Proposal, base agent.Context, qty float64) string {
	if !m.breaker.Allow() {
		logger.Warnf("arbiter: executor breaker open, %s %s suppressed", p.Action, symbol)
		return "not executed: executor circuit open"
	}

	order := gateway.Order{
		TraceID:  traceID,
		Agent:    p.Agent,
		Symbol:   symbol,
		Quantity: qty,
		Price:    base.Price,
	}
	var err error
	if p.Action == types.ActionBuy {
		err = m.executor.ExecuteBuy(ctx, order)
	} else {
		err = m.executor.ExecuteSell(ctx, order)
	}
	if err != nil {
		m.breaker.RecordFailure()
		logger.Warnf("arbiter: executing %s %s qty=%.4f failed: %v", p.Action, symbol, qty, err)
		return fmt.Sprintf("execution failed: %v", err)
	}
	m.breaker.RecordSuccess()

	if err := m.applyLedger(p, symbol, base, qty); err != nil {
		logger.Warnf("arbiter: ledger update for %s %s failed: %v", p.Action, symbol, err)
		return fmt.Sprintf("executed, ledger update failed: %v", err)
	}
	return "executed"
}

func (m *Manager) applyLedger(p types.Proposal, symbol string, base agent.Context, qty float64) error {
	switch p.Action {
	case types.ActionBuy:
		return m.ledger.Create(types.Position{
			ID:            uuid.NewString(),
			Symbol:        symbol,
			EntryPrice:    base.Price,
			Quantity:      qty,
			OwningAgent:   p.Agent,
			EntryDate:     time.Now(),
			HighWaterMark: base.Price,
		})
	case types.ActionSell:
		if base.Position != nil && trading.GTE(qty, base.Position.Quantity) {
			_, err := m.ledger.Close(symbol, base.Price)
			return err
		}
		return m.ledger.Reduce(symbol, qty, base.Price)
	default:
		return nil
	}
}

func (m *Manager) record(ctx context.Context, traceID, symbol string, p types.Proposal, base agent.Context, qty float64, note string) {
	m.log.Append(ctx, decisionlog.Record{
		TraceID:     traceID,
		Timestamp:   time.Now(),
		Agent:       p.Agent,
		Symbol:      symbol,
		Action:      p.Action,
		Quantity:    qty,
		Price:       base.Price,
		DataQuality: p.DataQualityScore,
		Rationale:   p.Rationale,
		Note:        note,
		Components:  p.Components,
	})
}
