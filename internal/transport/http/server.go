// Package adminhttp exposes the JSON admin surface: weight management,
// decision history, and feedback multipliers.
package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"arbiter/internal/arbiter"
	"arbiter/internal/feedback"
	"arbiter/internal/logger"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/types"
	"arbiter/internal/weights"
)

// Server serves the admin API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig carries the server's collaborators.
type ServerConfig struct {
	Addr     string
	Manager  *arbiter.Manager
	Weights  *weights.Store
	Feedback *feedback.Loop
	Logs     *decisionlog.Store
}

// NewServer builds the admin server. Manager and Weights are required; the
// decision and feedback endpoints degrade when their stores are absent.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Manager == nil || cfg.Weights == nil {
		return nil, errors.New("admin http server requires manager and weight store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9982"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{cfg: cfg}
	api := router.Group("/api")
	{
		api.GET("/weights", h.listWeights)
		api.GET("/weights/:symbol/:agent", h.getWeights)
		api.PUT("/weights/:symbol/:agent", h.putWeights)
		api.POST("/weights/:symbol/:agent/reset", h.resetWeights)
		api.GET("/decisions", h.listDecisions)
		api.GET("/feedback", h.listFeedback)
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("admin http listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Router exposes the underlying handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

type handlers struct {
	cfg ServerConfig
}

func (h *handlers) listWeights(c *gin.Context) {
	symbols := h.cfg.Weights.ListCustomizedSymbols()
	out := make(map[string]map[string]types.WeightVector, len(symbols))
	for _, symbol := range symbols {
		perAgent := make(map[string]types.WeightVector, 3)
		for _, agent := range []types.AgentID{types.AgentSwing, types.AgentScalp, types.AgentHedge} {
			perAgent[string(agent)] = h.cfg.Weights.Get(symbol, agent)
		}
		out[symbol] = perAgent
	}
	c.JSON(http.StatusOK, gin.H{"symbols": out})
}

func (h *handlers) getWeights(c *gin.Context) {
	agent, ok := types.ParseAgentID(c.Param("agent"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown agent"})
		return
	}
	symbol := c.Param("symbol")
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"agent":   agent,
		"weights": h.cfg.Weights.Get(symbol, agent),
		"default": weights.DefaultFor(agent),
	})
}

// putWeights accepts either a flat component object or one nested under
// "weights"; numeric strings are tolerated.
func (h *handlers) putWeights(c *gin.Context) {
	agent, ok := types.ParseAgentID(c.Param("agent"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown agent"})
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading body failed"})
		return
	}
	body := gjson.ParseBytes(raw)
	if !body.IsObject() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	node := body
	if nested := body.Get("weights"); nested.IsObject() {
		node = nested
	}
	vector := types.WeightVector{
		Fundamental: node.Get("fundamental").Float(),
		Technical:   node.Get("technical").Float(),
		Macro:       node.Get("macro").Float(),
		News:        node.Get("news").Float(),
		Pattern:     node.Get("pattern").Float(),
	}
	if vector.Sum() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weights must contain at least one positive component"})
		return
	}
	reasoning := body.Get("reasoning").String()
	if reasoning == "" {
		reasoning = body.Get("reason").String()
	}

	updated, err := h.cfg.Manager.UpdateWeights(c.Request.Context(), c.Param("symbol"), agent, vector, reasoning)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  c.Param("symbol"),
		"agent":   agent,
		"weights": updated,
	})
}

func (h *handlers) resetWeights(c *gin.Context) {
	agent, ok := types.ParseAgentID(c.Param("agent"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown agent"})
		return
	}
	if err := h.cfg.Weights.ResetToDefault(c.Request.Context(), c.Param("symbol"), agent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  c.Param("symbol"),
		"agent":   agent,
		"weights": weights.DefaultFor(agent),
	})
}

func (h *handlers) listDecisions(c *gin.Context) {
	if h.cfg.Logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision log not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	symbol := c.Query("symbol")

	var (
		records []decisionlog.Record
		err     error
	)
	if symbol != "" {
		records, err = h.cfg.Logs.BySymbol(c.Request.Context(), symbol, limit)
	} else {
		records, err = h.cfg.Logs.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": records})
}

func (h *handlers) listFeedback(c *gin.Context) {
	out := make(map[string]float64, 3)
	for _, agent := range []types.AgentID{types.AgentSwing, types.AgentScalp, types.AgentHedge} {
		out[string(agent)] = h.cfg.Feedback.Multiplier(agent)
	}
	c.JSON(http.StatusOK, gin.H{"multipliers": out})
}
