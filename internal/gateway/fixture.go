package gateway

import (
	"context"
	"sync"

	"arbiter/internal/logger"
	"arbiter/internal/types"
)

// SymbolScores is one symbol's fixture data. Nil fields read as missing.
type SymbolScores struct {
	Fundamental *float64
	Technical   *TechnicalReport
	News        *types.NewsInsight
	Price       float64
	Candles     []types.Candle
}

// FixtureProvider serves scores and market data from a static table. It backs
// paper mode and tests; a real deployment swaps in live providers.
type FixtureProvider struct {
	mu      sync.RWMutex
	macro   *types.MacroRating
	symbols map[string]SymbolScores
}

func NewFixtureProvider() *FixtureProvider {
	return &FixtureProvider{symbols: make(map[string]SymbolScores)}
}

// SetMacro installs the macro rating returned to every caller.
func (p *FixtureProvider) SetMacro(rating types.MacroRating) {
	p.mu.Lock()
	p.macro = &rating
	p.mu.Unlock()
}

// SetSymbol installs fixture data for one symbol, replacing prior data.
func (p *FixtureProvider) SetSymbol(symbol string, scores SymbolScores) {
	p.mu.Lock()
	p.symbols[normalize(symbol)] = scores
	p.mu.Unlock()
}

func (p *FixtureProvider) lookup(symbol string) (SymbolScores, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.symbols[normalize(symbol)]
	return s, ok
}

func (p *FixtureProvider) FundamentalScore(_ context.Context, symbol string) (float64, bool) {
	s, ok := p.lookup(symbol)
	if !ok || s.Fundamental == nil {
		return 0, false
	}
	return *s.Fundamental, true
}

func (p *FixtureProvider) TechnicalScore(_ context.Context, symbol string) (TechnicalReport, bool) {
	s, ok := p.lookup(symbol)
	if !ok || s.Technical == nil {
		return TechnicalReport{}, false
	}
	return *s.Technical, true
}

func (p *FixtureProvider) MacroRating(_ context.Context) (types.MacroRating, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.macro == nil {
		return types.MacroRating{}, false
	}
	return *p.macro, true
}

func (p *FixtureProvider) NewsInsight(_ context.Context, symbol string) (types.NewsInsight, bool) {
	s, ok := p.lookup(symbol)
	if !ok || s.News == nil {
		return types.NewsInsight{}, false
	}
	return *s.News, true
}

func (p *FixtureProvider) Price(_ context.Context, symbol string) (float64, bool) {
	s, ok := p.lookup(symbol)
	if !ok || s.Price <= 0 {
		return 0, false
	}
	return s.Price, true
}

func (p *FixtureProvider) Candles(_ context.Context, symbol string, limit int) ([]types.Candle, bool) {
	s, ok := p.lookup(symbol)
	if !ok || len(s.Candles) == 0 {
		return nil, false
	}
	candles := s.Candles
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]types.Candle, len(candles))
	copy(out, candles)
	return out, true
}

var (
	_ ScoreProvider = (*FixtureProvider)(nil)
	_ MarketData    = (*FixtureProvider)(nil)
)

// LogExecutor accepts every order and only logs it. Used for paper runs.
type LogExecutor struct{}

func (LogExecutor) ExecuteBuy(_ context.Context, order Order) error {
	logger.Infof("paper buy %s qty=%.4f price=%.2f agent=%s trace=%s",
		order.Symbol, order.Quantity, order.Price, order.Agent, order.TraceID)
	return nil
}

func (LogExecutor) ExecuteSell(_ context.Context, order Order) error {
	logger.Infof("paper sell %s qty=%.4f price=%.2f agent=%s trace=%s",
		order.Symbol, order.Quantity, order.Price, order.Agent, order.TraceID)
	return nil
}

var _ TradeExecutor = LogExecutor{}
