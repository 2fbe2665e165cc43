// Package gateway declares the collaborator boundaries the arbitration core
// depends on. Score computation, execution, and position bookkeeping live
// behind these interfaces; missing data is reported with ok=false, never an
// error.
package gateway

import (
	"context"

	"arbiter/internal/types"
)

// TechnicalReport is the technical module's output for a symbol. PatternScore
// is present only when the provider runs pattern analysis.
type TechnicalReport struct {
	Score        float64
	PatternScore *float64
}

// ScoreProvider supplies the analytical scores agents build opinions from.
// All scores are on the 0-100 scale.
type ScoreProvider interface {
	FundamentalScore(ctx context.Context, symbol string) (float64, bool)
	TechnicalScore(ctx context.Context, symbol string) (TechnicalReport, bool)
	MacroRating(ctx context.Context) (types.MacroRating, bool)
	NewsInsight(ctx context.Context, symbol string) (types.NewsInsight, bool)
}

// MarketData supplies prices and candles for symbols under evaluation.
type MarketData interface {
	Price(ctx context.Context, symbol string) (float64, bool)
	Candles(ctx context.Context, symbol string, limit int) ([]types.Candle, bool)
}

// Order is a sized execution request.
type Order struct {
	TraceID  string
	Agent    types.AgentID
	Symbol   string
	Quantity float64
	Price    float64
}

// TradeExecutor carries orders to the outside world. Failures are the
// caller's to absorb; the cycle never depends on execution success.
type TradeExecutor interface {
	ExecuteBuy(ctx context.Context, order Order) error
	ExecuteSell(ctx context.Context, order Order) error
}

// PositionLedger owns position state. The ledger enforces nothing about
// agent ownership; that invariant belongs to the arbiter.
type PositionLedger interface {
	Open(symbol string) (types.Position, bool)
	OpenPositions() []types.Position
	Equity() float64
	Create(pos types.Position) error
	Reduce(symbol string, quantity, price float64) error
	Close(symbol string, price float64) (types.ClosedTrade, error)
	MarkPrice(symbol string, price float64)
	History() []types.ClosedTrade
}
