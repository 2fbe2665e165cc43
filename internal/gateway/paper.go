package gateway

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/types"
)

// PaperLedger is an in-memory PositionLedger for tests and paper runs.
// Equity is starting capital plus realized profit.
type PaperLedger struct {
	mu        sync.Mutex
	capital   float64
	realized  float64
	positions map[string]types.Position
	closed    []types.ClosedTrade
}

func NewPaperLedger(startingCapital float64) *PaperLedger {
	return &PaperLedger{
		capital:   startingCapital,
		positions: make(map[string]types.Position),
	}
}

func (l *PaperLedger) Open(symbol string) (types.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[normalize(symbol)]
	return pos, ok
}

func (l *PaperLedger) OpenPositions() []types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (l *PaperLedger) Equity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital + l.realized
}

func (l *PaperLedger) Create(pos types.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbol := normalize(pos.Symbol)
	if symbol == "" {
		return fmt.Errorf("paper ledger: symbol cannot be empty")
	}
	if _, exists := l.positions[symbol]; exists {
		return fmt.Errorf("paper ledger: %s already has an open position", symbol)
	}
	if pos.Quantity <= 0 || pos.EntryPrice <= 0 {
		return fmt.Errorf("paper ledger: invalid position for %s", symbol)
	}
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}
	if pos.EntryDate.IsZero() {
		pos.EntryDate = time.Now()
	}
	if pos.HighWaterMark < pos.EntryPrice {
		pos.HighWaterMark = pos.EntryPrice
	}
	pos.Symbol = symbol
	l.positions[symbol] = pos
	return nil
}

func (l *PaperLedger) Reduce(symbol string, quantity, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbol = normalize(symbol)
	pos, ok := l.positions[symbol]
	if !ok {
		return fmt.Errorf("paper ledger: no open position for %s", symbol)
	}
	if quantity <= 0 || quantity > pos.Quantity {
		return fmt.Errorf("paper ledger: reduce quantity %.4f out of range for %s", quantity, symbol)
	}
	l.realized += (price - pos.EntryPrice) * quantity
	pos.Quantity -= quantity
	if pos.Quantity == 0 {
		delete(l.positions, symbol)
		l.closed = append(l.closed, closedFrom(pos, price, quantity))
		return nil
	}
	l.positions[symbol] = pos
	return nil
}

func (l *PaperLedger) Close(symbol string, price float64) (types.ClosedTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbol = normalize(symbol)
	pos, ok := l.positions[symbol]
	if !ok {
		return types.ClosedTrade{}, fmt.Errorf("paper ledger: no open position for %s", symbol)
	}
	delete(l.positions, symbol)
	l.realized += (price - pos.EntryPrice) * pos.Quantity
	trade := closedFrom(pos, price, pos.Quantity)
	l.closed = append(l.closed, trade)
	return trade, nil
}

// MarkPrice advances the position's high-water mark; prices below it are
// ignored.
func (l *PaperLedger) MarkPrice(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbol = normalize(symbol)
	pos, ok := l.positions[symbol]
	if !ok || price <= pos.HighWaterMark {
		return
	}
	pos.HighWaterMark = price
	l.positions[symbol] = pos
}

func (l *PaperLedger) History() []types.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ClosedTrade, len(l.closed))
	copy(out, l.closed)
	return out
}

func closedFrom(pos types.Position, price, quantity float64) types.ClosedTrade {
	return types.ClosedTrade{
		Agent:      pos.OwningAgent,
		Symbol:     pos.Symbol,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Quantity:   quantity,
		ClosedAt:   time.Now(),
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
