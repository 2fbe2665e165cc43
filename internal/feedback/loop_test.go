package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbiter/internal/config"
	"arbiter/internal/types"
)

func testConfig() config.FeedbackConfig {
	return config.FeedbackConfig{
		Window:         20,
		MinSamples:     5,
		LowWinRate:     0.40,
		HighWinRate:    0.60,
		LowMultiplier:  0.70,
		HighMultiplier: 1.30,
	}
}

func trades(agent types.AgentID, wins, losses int) []types.ClosedTrade {
	out := make([]types.ClosedTrade, 0, wins+losses)
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < wins; i++ {
		out = append(out, types.ClosedTrade{Agent: agent, Symbol: "AAPL", EntryPrice: 100, ExitPrice: 110, ClosedAt: at})
		at = at.Add(time.Hour)
	}
	for i := 0; i < losses; i++ {
		out = append(out, types.ClosedTrade{Agent: agent, Symbol: "AAPL", EntryPrice: 100, ExitPrice: 95, ClosedAt: at})
		at = at.Add(time.Hour)
	}
	return out
}

func TestMultiplierDefaultsToNeutral(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
}

func TestTuneBelowMinSamplesStaysNeutral(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	l.Tune(trades(types.AgentSwing, 0, 4))
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
}

func TestTunePenalizesLowWinRate(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	l.Tune(trades(types.AgentScalp, 2, 8))
	assert.Equal(t, 0.70, l.Multiplier(types.AgentScalp))
}

func TestTuneRewardsHighWinRate(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	l.Tune(trades(types.AgentSwing, 7, 3))
	assert.Equal(t, 1.30, l.Multiplier(types.AgentSwing))
}

func TestTuneMidBandIsNeutral(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	l.Tune(trades(types.AgentSwing, 5, 5))
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
}

func TestTuneBoundariesAreNeutral(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	// exactly 40% and exactly 60% sit inside the neutral band
	l.Tune(trades(types.AgentSwing, 4, 6))
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
	l.Tune(trades(types.AgentSwing, 6, 4))
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
}

func TestTuneUsesTrailingWindow(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	// 30 old losses followed by 20 recent wins: only the window counts
	old := trades(types.AgentSwing, 0, 30)
	recent := trades(types.AgentSwing, 20, 0)
	for i := range recent {
		recent[i].ClosedAt = recent[i].ClosedAt.Add(100 * time.Hour)
	}
	l.Tune(append(old, recent...))
	assert.Equal(t, 1.30, l.Multiplier(types.AgentSwing))
}

func TestTuneIsPerAgent(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	history := append(trades(types.AgentSwing, 8, 2), trades(types.AgentScalp, 2, 8)...)
	l.Tune(history)
	assert.Equal(t, 1.30, l.Multiplier(types.AgentSwing))
	assert.Equal(t, 0.70, l.Multiplier(types.AgentScalp))
	assert.Equal(t, 1.0, l.Multiplier(types.AgentHedge))
}

func TestTuneResetsWhenHistoryShrinks(t *testing.T) {
	l := NewLoop(testConfig(), nil)
	l.Tune(trades(types.AgentSwing, 8, 2))
	assert.Equal(t, 1.30, l.Multiplier(types.AgentSwing))

	l.Tune(nil)
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
}

func TestNilLoopIsSafe(t *testing.T) {
	var l *Loop
	assert.Equal(t, 1.0, l.Multiplier(types.AgentSwing))
	l.Tune(trades(types.AgentSwing, 5, 5))
}
