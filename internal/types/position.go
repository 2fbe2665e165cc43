package types

import "time"

// Position is an open holding. The ledger maintains at most one per symbol;
// only OwningAgent may reduce or close it.
type Position struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	EntryPrice    float64   `json:"entry_price"`
	Quantity      float64   `json:"quantity"`
	OwningAgent   AgentID   `json:"owning_agent"`
	EntryDate     time.Time `json:"entry_date"`
	HighWaterMark float64   `json:"high_water_mark"`
}

// PnLPercent is the unrealized return at the given price, as a percentage.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// OwnedBy reports whether agent may manage this position.
func (p Position) OwnedBy(agent AgentID) bool {
	return p.OwningAgent == agent
}

// ClosedTrade is a completed round trip, consumed by the feedback loop.
type ClosedTrade struct {
	Agent      AgentID   `json:"agent"`
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	ClosedAt   time.Time `json:"closed_at"`
}

// Win reports whether the trade closed profitable.
func (t ClosedTrade) Win() bool {
	return t.ExitPrice > t.EntryPrice
}
