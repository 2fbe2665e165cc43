// Package weights persists per-(symbol,agent) module weight vectors with an
// in-memory cache in front of SQLite. Reads never fail: a missing or broken
// store degrades to the agent defaults.
package weights

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"arbiter/internal/logger"
	"arbiter/internal/types"
)

type weightModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Symbol      string `gorm:"size:32;uniqueIndex:idx_weights_symbol_agent"`
	Agent       string `gorm:"size:16;uniqueIndex:idx_weights_symbol_agent"`
	Fundamental float64
	Technical   float64
	Macro       float64
	News        float64
	Pattern     float64
	Reasoning   string `gorm:"type:text"`
	UpdatedAt   time.Time
}

func (weightModel) TableName() string { return "module_weights" }

type cacheKey struct {
	symbol string
	agent  types.AgentID
}

// Store holds the live weight table. All methods are safe for concurrent use.
type Store struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[cacheKey]types.WeightVector
}

// NewStore opens (or creates) the SQLite file at path and warms the cache
// with every stored vector.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("weight store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&weightModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	s := &Store{db: db, cache: make(map[cacheKey]types.WeightVector)}
	if err := s.warm(); err != nil {
		logger.Warnf("weight store: loading stored vectors failed, serving defaults: %v", err)
	}
	return s, nil
}

// NewMemoryStore builds a store with no persistence behind it, for tests and
// paper runs.
func NewMemoryStore() *Store {
	return &Store{cache: make(map[cacheKey]types.WeightVector)}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) warm() error {
	var models []weightModel
	if err := s.db.Find(&models).Error; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range models {
		agent, ok := types.ParseAgentID(m.Agent)
		if !ok {
			continue
		}
		s.cache[cacheKey{symbol: m.Symbol, agent: agent}] = types.WeightVector{
			Fundamental: m.Fundamental,
			Technical:   m.Technical,
			Macro:       m.Macro,
			News:        m.News,
			Pattern:     m.Pattern,
		}
	}
	return nil
}

// GormDB exposes the underlying handle so sibling stores can share the file.
func (s *Store) GormDB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the stored vector for (symbol, agent), or the agent default
// when none exists. It never errors.
func (s *Store) Get(symbol string, agent types.AgentID) types.WeightVector {
	if s == nil {
		return DefaultFor(agent)
	}
	symbol = normalizeSymbol(symbol)
	s.mu.RLock()
	v, ok := s.cache[cacheKey{symbol: symbol, agent: agent}]
	s.mu.RUnlock()
	if !ok {
		return DefaultFor(agent)
	}
	return v
}

// Update clamps the vector into [0,1] per component, normalizes it to sum 1,
// and persists it. Persistence failure degrades to a logged warning: the
// cache retains the update and the caller still gets the normalized vector.
func (s *Store) Update(ctx context.Context, symbol string, agent types.AgentID, v types.WeightVector, reasoning string) (types.WeightVector, error) {
	if s == nil {
		return types.WeightVector{}, fmt.Errorf("weight store not initialized")
	}
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return types.WeightVector{}, fmt.Errorf("weight store: symbol cannot be empty")
	}

	clamped, changed := v.Clamped()
	if changed {
		if reasoning != "" {
			reasoning += "; "
		}
		reasoning += "components clamped to [0,1]"
	}
	normalized := clamped.Normalized()

	s.mu.Lock()
	s.cache[cacheKey{symbol: symbol, agent: agent}] = normalized
	s.mu.Unlock()

	if s.db == nil {
		return normalized, nil
	}
	model := weightModel{
		Symbol:      symbol,
		Agent:       string(agent),
		Fundamental: normalized.Fundamental,
		Technical:   normalized.Technical,
		Macro:       normalized.Macro,
		News:        normalized.News,
		Pattern:     normalized.Pattern,
		Reasoning:   reasoning,
		UpdatedAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "agent"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"fundamental", "technical", "macro", "news", "pattern", "reasoning", "updated_at",
			}),
		}).
		Create(&model).Error
	if err != nil {
		logger.Warnf("weight store: persisting %s/%s failed, cache retains the update: %v", symbol, agent, err)
	}
	return normalized, nil
}

// ResetToDefault drops the stored vector so Get falls back to the built-in
// default.
func (s *Store) ResetToDefault(ctx context.Context, symbol string, agent types.AgentID) error {
	if s == nil {
		return fmt.Errorf("weight store not initialized")
	}
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	delete(s.cache, cacheKey{symbol: symbol, agent: agent})
	s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("symbol = ? AND agent = ?", symbol, string(agent)).
		Delete(&weightModel{}).Error
}

// ListCustomizedSymbols enumerates every symbol carrying at least one stored
// vector, sorted for stable output.
func (s *Store) ListCustomizedSymbols() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	seen := make(map[string]bool, len(s.cache))
	for k := range s.cache {
		seen[k.symbol] = true
	}
	s.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
