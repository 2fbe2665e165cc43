// Package feedback turns recent trade outcomes into per-agent risk
// multipliers. Multipliers are derived state: losing them only costs a
// recomputation over the trade history.
package feedback

import (
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"arbiter/internal/config"
	"arbiter/internal/logger"
	"arbiter/internal/types"
)

type multiplierModel struct {
	Agent      string `gorm:"primaryKey;size:16"`
	Multiplier float64
	Samples    int
	WinRate    float64
	UpdatedAt  time.Time
}

func (multiplierModel) TableName() string { return "feedback_multipliers" }

// Loop computes and caches the per-agent sizing multiplier from a trailing
// window of closed trades. Safe for concurrent reads during Tune.
type Loop struct {
	cfg config.FeedbackConfig
	db  *gorm.DB

	mu    sync.RWMutex
	cache map[types.AgentID]float64
}

// NewLoop builds a loop backed by db for persistence; db may be nil for a
// memory-only loop. Stored multipliers are loaded so lookups are warm before
// the first Tune.
func NewLoop(cfg config.FeedbackConfig, db *gorm.DB) *Loop {
	l := &Loop{cfg: cfg, db: db, cache: make(map[types.AgentID]float64)}
	if db != nil {
		if err := db.AutoMigrate(&multiplierModel{}); err != nil {
			logger.Warnf("feedback: migrating multiplier table failed: %v", err)
			l.db = nil
			return l
		}
		var models []multiplierModel
		if err := db.Find(&models).Error; err != nil {
			logger.Warnf("feedback: loading stored multipliers failed, recomputing on next tune: %v", err)
			return l
		}
		for _, m := range models {
			if agent, ok := types.ParseAgentID(m.Agent); ok {
				l.cache[agent] = clampMultiplier(m.Multiplier, cfg)
			}
		}
	}
	return l
}

// Multiplier returns the current sizing multiplier for agent, 1.0 when no
// tuning has happened yet. The result always lies in
// [LowMultiplier, HighMultiplier].
func (l *Loop) Multiplier(agent types.AgentID) float64 {
	if l == nil {
		return 1.0
	}
	l.mu.RLock()
	m, ok := l.cache[agent]
	l.mu.RUnlock()
	if !ok {
		return 1.0
	}
	return m
}

// Tune recomputes every agent's multiplier from the trailing window of its
// closed trades. Agents with fewer than MinSamples trades stay at 1.0.
func (l *Loop) Tune(history []types.ClosedTrade) {
	if l == nil {
		return
	}
	byAgent := make(map[types.AgentID][]types.ClosedTrade)
	for _, tr := range history {
		byAgent[tr.Agent] = append(byAgent[tr.Agent], tr)
	}

	next := make(map[types.AgentID]float64, 3)
	stats := make(map[types.AgentID]multiplierModel, 3)
	for _, agent := range []types.AgentID{types.AgentSwing, types.AgentScalp, types.AgentHedge} {
		trades := byAgent[agent]
		sort.Slice(trades, func(i, j int) bool { return trades[i].ClosedAt.Before(trades[j].ClosedAt) })
		if len(trades) > l.cfg.Window {
			trades = trades[len(trades)-l.cfg.Window:]
		}
		mult, winRate := l.multiplierFor(trades)
		next[agent] = mult
		stats[agent] = multiplierModel{
			Agent:      string(agent),
			Multiplier: mult,
			Samples:    len(trades),
			WinRate:    winRate,
			UpdatedAt:  time.Now(),
		}
		logger.Debugf("feedback: %s trades=%d win_rate=%.2f multiplier=%.2f", agent, len(trades), winRate, mult)
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()

	l.persist(stats)
}

func (l *Loop) multiplierFor(trades []types.ClosedTrade) (multiplier, winRate float64) {
	if len(trades) < l.cfg.MinSamples {
		return 1.0, 0
	}
	wins := 0
	for _, tr := range trades {
		if tr.Win() {
			wins++
		}
	}
	winRate = float64(wins) / float64(len(trades))
	switch {
	case winRate < l.cfg.LowWinRate:
		return l.cfg.LowMultiplier, winRate
	case winRate > l.cfg.HighWinRate:
		return l.cfg.HighMultiplier, winRate
	default:
		return 1.0, winRate
	}
}

func (l *Loop) persist(stats map[types.AgentID]multiplierModel) {
	if l.db == nil {
		return
	}
	for _, m := range stats {
		if err := l.db.Save(&m).Error; err != nil {
			logger.Warnf("feedback: persisting multiplier for %s failed: %v", m.Agent, err)
			return
		}
	}
}

func clampMultiplier(m float64, cfg config.FeedbackConfig) float64 {
	if m < cfg.LowMultiplier {
		return cfg.LowMultiplier
	}
	if m > cfg.HighMultiplier {
		return cfg.HighMultiplier
	}
	return m
}
