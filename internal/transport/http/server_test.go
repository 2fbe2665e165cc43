package adminhttp

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"arbiter/internal/arbiter"
	"arbiter/internal/config"
	"arbiter/internal/feedback"
	"arbiter/internal/gateway"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/weights"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Consensus: config.ConsensusConfig{
			TierOneScore: 80, TierTwoScore: 65, TierThreeScore: 50,
			QualityMinimum: 0.40, QualityTierTwo: 0.60, QualityTierOne: 0.80,
			VetoStrength: 0.70, WeakObjectionFloor: 0.30,
			ObjectorSumReduce: 0.5, ReducedSizeCap: 0.5,
		},
		Agents: config.AgentsConfig{
			Swing: config.SwingConfig{
				MinDataQuality: 80, EntryFundamental: 65, EntryTechnical: 60,
				EntryMacro: 20, EntryNews: 40,
				BaseExposurePct: 0.05, MaxExposurePct: 0.12,
				StopLossPct: -8, TakeProfitPct: 15, TakeProfitTechnical: 85,
				TrailingActivatePct: 5, TrailingDropPct: 2.5, DeteriorationScore: 40,
			},
			Scalp: config.ScalpConfig{
				MinDataQuality: 60, EntryNews: 70, EntryTechnical: 55, EntryMacro: 40,
				BaseExposurePct: 0.03, MaxExposurePct: 0.05,
				StopLossPct: -3, TakeProfitPct: 5,
			},
			Hedge: config.HedgeConfig{
				Instrument: "SQQQ", EntryMacroBelow: 25, DeepMacroBelow: 15,
				ExposurePct: 0.10, DeepExposurePct: 0.20, ExitMacroAbove: 40,
			},
		},
		Arbiter: config.ArbiterConfig{
			Priority:             []string{"hedge", "swing", "scalp"},
			MaxSymbolExposurePct: 0.10,
			CycleInterval:        "15m",
		},
	}
	provider := gateway.NewFixtureProvider()
	ws := weights.NewMemoryStore()
	loop := feedback.NewLoop(config.FeedbackConfig{
		Window: 20, MinSamples: 5,
		LowWinRate: 0.40, HighWinRate: 0.60,
		LowMultiplier: 0.70, HighMultiplier: 1.30,
	}, nil)
	logs, err := decisionlog.NewStore(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = logs.Close() })

	manager := arbiter.NewManager(cfg, provider, provider,
		gateway.LogExecutor{}, gateway.NewPaperLedger(100_000), ws, loop, logs)

	srv, err := NewServer(ServerConfig{
		Addr:     ":0",
		Manager:  manager,
		Weights:  ws,
		Feedback: loop,
		Logs:     logs,
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPutWeightsFlatPayload(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/api/weights/AAPL/swing",
		`{"fundamental": 0.6, "technical": 0.6, "reasoning": "tilt to fundamentals"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.InDelta(t, 0.5, body.Get("weights.fundamental").Float(), 1e-9)
	assert.InDelta(t, 0.5, body.Get("weights.technical").Float(), 1e-9)
}

func TestPutWeightsNestedAndStringNumbers(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/api/weights/MSFT/scalp",
		`{"weights": {"news": "1", "technical": "3"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.InDelta(t, 0.25, body.Get("weights.news").Float(), 1e-9)
	assert.InDelta(t, 0.75, body.Get("weights.technical").Float(), 1e-9)
}

func TestPutWeightsRejectsGarbage(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest,
		do(t, srv, http.MethodPut, "/api/weights/AAPL/swing", `{"macro": 0}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, srv, http.MethodPut, "/api/weights/AAPL/nosuch", `{"macro": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, srv, http.MethodPut, "/api/weights/AAPL/swing", `[1,2,3]`).Code)
}

func TestResetWeights(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, srv, http.MethodPut, "/api/weights/NVDA/swing", `{"technical": 1}`).Code)
	rec := do(t, srv, http.MethodPost, "/api/weights/NVDA/swing/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.InDelta(t, 0.30, body.Get("weights.fundamental").Float(), 1e-9)
}

func TestListWeightsShowsCustomizedSymbols(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, srv, http.MethodPut, "/api/weights/TSLA/scalp", `{"news": 1}`).Code)
	rec := do(t, srv, http.MethodGet, "/api/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.True(t, body.Get("symbols.TSLA").Exists())
}

func TestListDecisionsAndFeedback(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/decisions?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Parse(rec.Body.String()).Get("decisions").Exists())

	rec = do(t, srv, http.MethodGet, "/api/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, gjson.Parse(rec.Body.String()).Get("multipliers.swing").Float())
}
