package arbiter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/agent"
	"arbiter/internal/config"
	"arbiter/internal/feedback"
	"arbiter/internal/gateway"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/types"
	"arbiter/internal/weights"
)

func testAppConfig() *config.Config {
	return &config.Config{
		Consensus: config.ConsensusConfig{
			TierOneScore:       80,
			TierTwoScore:       65,
			TierThreeScore:     50,
			QualityMinimum:     0.40,
			QualityTierTwo:     0.60,
			QualityTierOne:     0.80,
			VetoStrength:       0.70,
			WeakObjectionFloor: 0.30,
			ObjectorSumReduce:  0.5,
			ReducedSizeCap:     0.5,
		},
		Agents: config.AgentsConfig{
			Swing: config.SwingConfig{
				MinDataQuality:      80,
				EntryFundamental:    65,
				EntryTechnical:      60,
				EntryMacro:          20,
				EntryNews:           40,
				BaseExposurePct:     0.05,
				MaxExposurePct:      0.12,
				StopLossPct:         -8,
				TakeProfitPct:       15,
				TakeProfitTechnical: 85,
				TrailingActivatePct: 5,
				TrailingDropPct:     2.5,
				DeteriorationScore:  40,
			},
			Scalp: config.ScalpConfig{
				MinDataQuality:  60,
				EntryNews:       70,
				EntryTechnical:  55,
				EntryMacro:      40,
				BaseExposurePct: 0.03,
				MaxExposurePct:  0.05,
				StopLossPct:     -3,
				TakeProfitPct:   5,
			},
			Hedge: config.HedgeConfig{
				Instrument:      "SQQQ",
				EntryMacroBelow: 25,
				DeepMacroBelow:  15,
				ExposurePct:     0.10,
				DeepExposurePct: 0.20,
				ExitMacroAbove:  40,
			},
			MacroRisk: config.MacroRiskConfig{
				RiskOnScore:       65,
				RiskOnMultiplier:  1.5,
				RiskOffScore:      40,
				RiskOffMultiplier: 0.3,
			},
		},
		Feedback: config.FeedbackConfig{
			Window:         20,
			MinSamples:     5,
			LowWinRate:     0.40,
			HighWinRate:    0.60,
			LowMultiplier:  0.70,
			HighMultiplier: 1.30,
		},
		Arbiter: config.ArbiterConfig{
			Symbols:              []string{"AAPL"},
			Priority:             []string{"hedge", "swing", "scalp"},
			MaxSymbolExposurePct: 0.10,
			CycleInterval:        "15m",
		},
	}
}

type failExecutor struct{ err error }

func (f failExecutor) ExecuteBuy(context.Context, gateway.Order) error  { return f.err }
func (f failExecutor) ExecuteSell(context.Context, gateway.Order) error { return f.err }

type harness struct {
	manager  *Manager
	provider *gateway.FixtureProvider
	ledger   *gateway.PaperLedger
	log      *decisionlog.Store
}

func newHarness(t *testing.T, executor gateway.TradeExecutor) *harness {
	t.Helper()
	provider := gateway.NewFixtureProvider()
	ledger := gateway.NewPaperLedger(100_000)
	log, err := decisionlog.NewStore(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	cfg := testAppConfig()
	m := NewManager(
		cfg,
		provider,
		provider,
		executor,
		ledger,
		weights.NewMemoryStore(),
		feedback.NewLoop(cfg.Feedback, nil),
		log,
	)
	return &harness{manager: m, provider: provider, ledger: ledger, log: log}
}

func fl(v float64) *float64 { return &v }

func candles(n int, price float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		out[i] = types.Candle{Open: price, High: price, Low: price, Close: price, Volume: 1}
	}
	return out
}

func setHealthyAAPL(p *gateway.FixtureProvider) {
	p.SetMacro(types.MacroRating{Score: 60, Regime: "neutral"})
	p.SetSymbol("AAPL", gateway.SymbolScores{
		Fundamental: fl(72),
		Technical:   &gateway.TechnicalReport{Score: 65},
		News:        &types.NewsInsight{Score: 55},
		Price:       100,
		Candles:     candles(25, 100),
	})
}

func TestRunCycleOpensSwingPosition(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})
	setHealthyAAPL(h.provider)

	h.manager.RunCycle(context.Background(), []string{"AAPL"})

	pos, ok := h.ledger.Open("AAPL")
	require.True(t, ok)
	assert.Equal(t, types.AgentSwing, pos.OwningAgent)
	// base 5% quartered by the tier-three consensus, at price 100
	assert.InDelta(t, 12.5, pos.Quantity, 1e-6)

	records, err := h.log.BySymbol(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "executed", records[0].Note)
	assert.NotEmpty(t, records[0].TraceID)
}

func TestRunCycleAlwaysEvaluatesHedgeInstrument(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})
	h.provider.SetMacro(types.MacroRating{Score: 10, Regime: "stress"})
	h.provider.SetSymbol("SQQQ", gateway.SymbolScores{Price: 30})

	// SQQQ is not in the candidate list; the manager appends it
	h.manager.RunCycle(context.Background(), nil)

	pos, ok := h.ledger.Open("SQQQ")
	require.True(t, ok)
	assert.Equal(t, types.AgentHedge, pos.OwningAgent)
	// deep stress wants 20% but the per-symbol cap holds it to 10% of equity
	assert.InDelta(t, 100_000*0.10/30, pos.Quantity, 1e-6)
}

func TestRunCycleExecutionFailureStillRecords(t *testing.T) {
	h := newHarness(t, failExecutor{err: errors.New("gateway unreachable")})
	setHealthyAAPL(h.provider)

	h.manager.RunCycle(context.Background(), []string{"AAPL"})

	_, ok := h.ledger.Open("AAPL")
	assert.False(t, ok, "failed execution must not create a position")

	records, err := h.log.BySymbol(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Contains(t, records[0].Note, "execution failed")
}

func TestRunCycleSurvivesPanickingAgent(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})
	setHealthyAAPL(h.provider)
	h.manager.agents = append(h.manager.agents, panicAgent{})

	assert.NotPanics(t, func() {
		h.manager.RunCycle(context.Background(), []string{"AAPL"})
	})
	// the healthy swing proposal still lands
	_, ok := h.ledger.Open("AAPL")
	assert.True(t, ok)
}

type panicAgent struct{}

func (panicAgent) ID() types.AgentID { return types.AgentID("broken") }
func (panicAgent) Propose(context.Context, string, agent.Context) types.Proposal {
	panic("boom")
}

func TestRunCycleWithoutDataOnlySkips(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})

	h.manager.RunCycle(context.Background(), []string{"AAPL"})

	_, ok := h.ledger.Open("AAPL")
	assert.False(t, ok)
	assert.Empty(t, h.ledger.History())
}

func TestTuneFeedbackFlowsIntoSizing(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})
	setHealthyAAPL(h.provider)

	// 2 wins out of 10 drags the swing multiplier to 0.70
	history := make([]types.ClosedTrade, 0, 10)
	for i := 0; i < 10; i++ {
		exit := 95.0
		if i < 2 {
			exit = 110
		}
		history = append(history, types.ClosedTrade{
			Agent: types.AgentSwing, Symbol: "AAPL", EntryPrice: 100, ExitPrice: exit,
		})
	}
	h.manager.TuneFeedback(history)
	h.manager.RunCycle(context.Background(), []string{"AAPL"})

	pos, ok := h.ledger.Open("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 12.5*0.70, pos.Quantity, 1e-6)
}

func TestUpdateWeightsNormalizes(t *testing.T) {
	h := newHarness(t, gateway.LogExecutor{})
	got, err := h.manager.UpdateWeights(context.Background(), "AAPL", types.AgentSwing,
		types.WeightVector{Fundamental: 2, Technical: 2}, "test")
	require.NoError(t, err)
	assert.True(t, got.Valid())
	assert.Equal(t, 0.5, got.Fundamental)
}

func TestResolveSingleProposalGuards(t *testing.T) {
	priority := []types.AgentID{types.AgentHedge, types.AgentSwing, types.AgentScalp}
	sell := types.Proposal{Agent: types.AgentSwing, Symbol: "AAPL", Action: types.ActionSell, Quantity: fl(5)}
	buy := types.Proposal{Agent: types.AgentScalp, Symbol: "AAPL", Action: types.ActionBuy, TargetExposurePct: fl(0.03)}

	// sell without a position is blocked
	res := resolve([]types.Proposal{sell}, nil, priority)
	assert.Nil(t, res.winner)
	require.Len(t, res.dropped, 1)
	assert.Contains(t, res.dropped[0].note, "no open position")

	// sell against a foreign position is blocked
	foreign := &types.Position{Symbol: "AAPL", OwningAgent: types.AgentScalp, Quantity: 10}
	res = resolve([]types.Proposal{sell}, foreign, priority)
	assert.Nil(t, res.winner)
	require.Len(t, res.dropped, 1)
	assert.Contains(t, res.dropped[0].note, "owned by scalp")

	// buy while any position is open is suppressed
	res = resolve([]types.Proposal{buy}, foreign, priority)
	assert.Nil(t, res.winner)
	require.Len(t, res.dropped, 1)
	assert.Contains(t, res.dropped[0].note, "suppressed")

	// sell by the owner goes through
	owned := &types.Position{Symbol: "AAPL", OwningAgent: types.AgentSwing, Quantity: 10}
	res = resolve([]types.Proposal{sell}, owned, priority)
	require.NotNil(t, res.winner)
	assert.Equal(t, types.AgentSwing, res.winner.Agent)
}

func TestResolvePriorityAndCancellation(t *testing.T) {
	priority := []types.AgentID{types.AgentHedge, types.AgentSwing, types.AgentScalp}
	swingBuy := types.Proposal{Agent: types.AgentSwing, Action: types.ActionBuy, TargetExposurePct: fl(0.05)}
	scalpBuy := types.Proposal{Agent: types.AgentScalp, Action: types.ActionBuy, TargetExposurePct: fl(0.03)}

	// same direction: the longer horizon wins
	res := resolve([]types.Proposal{scalpBuy, swingBuy}, nil, priority)
	require.NotNil(t, res.winner)
	assert.Equal(t, types.AgentSwing, res.winner.Agent)
	require.Len(t, res.dropped, 1)
	assert.Contains(t, res.dropped[0].note, "yielded to swing")

	// opposing directions cancel both, regardless of input order
	pos := &types.Position{Symbol: "AAPL", OwningAgent: types.AgentSwing, Quantity: 10}
	swingSell := types.Proposal{Agent: types.AgentSwing, Action: types.ActionSell, Quantity: fl(10)}
	for _, proposals := range [][]types.Proposal{
		{swingSell, scalpBuy},
		{scalpBuy, swingSell},
	} {
		res = resolve(proposals, pos, priority)
		assert.Nil(t, res.winner)
		assert.Len(t, res.dropped, 2)
		for _, d := range res.dropped {
			assert.Contains(t, d.note, "cancelled")
		}
	}
}

func TestResolveHedgeWinsUnconditionally(t *testing.T) {
	priority := []types.AgentID{types.AgentHedge, types.AgentSwing, types.AgentScalp}
	swingBuy := types.Proposal{Agent: types.AgentSwing, Action: types.ActionBuy, TargetExposurePct: fl(0.05)}

	// same direction: the hedge outranks the swing entry
	hedgeBuy := types.Proposal{Agent: types.AgentHedge, Action: types.ActionBuy, TargetExposurePct: fl(0.10)}
	res := resolve([]types.Proposal{swingBuy, hedgeBuy}, nil, priority)
	require.NotNil(t, res.winner)
	assert.Equal(t, types.AgentHedge, res.winner.Agent)
	require.Len(t, res.dropped, 1)
	assert.Contains(t, res.dropped[0].note, "yielded to hedge")

	// opposing direction: the hedge still wins instead of cancelling
	pos := &types.Position{Symbol: "SQQQ", OwningAgent: types.AgentHedge, Quantity: 10}
	hedgeSell := types.Proposal{Agent: types.AgentHedge, Action: types.ActionSell, Quantity: fl(10)}
	for _, proposals := range [][]types.Proposal{
		{swingBuy, hedgeSell},
		{hedgeSell, swingBuy},
	} {
		res = resolve(proposals, pos, priority)
		require.NotNil(t, res.winner)
		assert.Equal(t, types.AgentHedge, res.winner.Agent)
		assert.Equal(t, types.ActionSell, res.winner.Action)
		require.Len(t, res.dropped, 1)
		assert.Contains(t, res.dropped[0].note, "yielded to hedge")
	}
}

func TestResolveIgnoresSkipAndHold(t *testing.T) {
	priority := []types.AgentID{types.AgentHedge, types.AgentSwing, types.AgentScalp}
	res := resolve([]types.Proposal{
		types.SkipProposal(types.AgentSwing, "AAPL", "no data"),
		types.HoldProposal(types.AgentScalp, "AAPL", "in band"),
	}, nil, priority)
	assert.Nil(t, res.winner)
	assert.Empty(t, res.dropped)
}
