// Package decisionlog keeps the append-only audit trail of arbitration
// outcomes. A write failure is logged and swallowed so it can never stall a
// trading cycle.
package decisionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"arbiter/internal/logger"
	"arbiter/internal/types"
)

// Record is one arbitration outcome for one symbol.
type Record struct {
	TraceID     string                `json:"trace_id"`
	Timestamp   time.Time             `json:"timestamp"`
	Agent       types.AgentID         `json:"agent"`
	Symbol      string                `json:"symbol"`
	Action      types.Action          `json:"action"`
	Quantity    float64               `json:"quantity"`
	Price       float64               `json:"price"`
	DataQuality float64               `json:"data_quality"`
	Rationale   string                `json:"rationale"`
	Note        string                `json:"note,omitempty"`
	Components  types.ComponentScores `json:"components"`
}

type decisionModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	TraceID     string `gorm:"size:64;index"`
	Timestamp   time.Time
	Agent       string `gorm:"size:16"`
	Symbol      string `gorm:"size:32;index"`
	Action      string `gorm:"size:8"`
	Quantity    float64
	Price       float64
	DataQuality float64
	Rationale   string         `gorm:"type:text"`
	Note        string         `gorm:"type:text"`
	Components  datatypes.JSON `gorm:"type:text"`
}

func (decisionModel) TableName() string { return "decisions" }

// Store writes and queries decision records.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the SQLite decision log at path.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("decision log: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&decisionModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

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

// Append records one decision. Failures are logged, never returned: the
// audit trail is best-effort by contract.
func (s *Store) Append(ctx context.Context, rec Record) {
	if s == nil || s.db == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	components, err := json.Marshal(rec.Components)
	if err != nil {
		components = []byte("{}")
	}
	model := decisionModel{
		TraceID:     rec.TraceID,
		Timestamp:   rec.Timestamp,
		Agent:       string(rec.Agent),
		Symbol:      strings.ToUpper(strings.TrimSpace(rec.Symbol)),
		Action:      string(rec.Action),
		Quantity:    rec.Quantity,
		Price:       rec.Price,
		DataQuality: rec.DataQuality,
		Rationale:   rec.Rationale,
		Note:        rec.Note,
		Components:  components,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		logger.Warnf("decision log: appending %s/%s failed: %v", rec.Symbol, rec.Action, err)
	}
}

// Recent returns the latest limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.query(ctx, limit, "")
}

// BySymbol returns the latest limit records for one symbol, newest first.
func (s *Store) BySymbol(ctx context.Context, symbol string, limit int) ([]Record, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("decision log: symbol cannot be empty")
	}
	return s.query(ctx, limit, symbol)
}

func (s *Store) query(ctx context.Context, limit int, symbol string) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("decision log not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var models []decisionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(models))
	for _, m := range models {
		records = append(records, modelToRecord(m))
	}
	return records, nil
}

func modelToRecord(m decisionModel) Record {
	rec := Record{
		TraceID:     m.TraceID,
		Timestamp:   m.Timestamp,
		Agent:       types.AgentID(m.Agent),
		Symbol:      m.Symbol,
		Action:      types.Action(m.Action),
		Quantity:    m.Quantity,
		Price:       m.Price,
		DataQuality: m.DataQuality,
		Rationale:   m.Rationale,
		Note:        m.Note,
	}
	if len(m.Components) > 0 {
		_ = json.Unmarshal(m.Components, &rec.Components)
	}
	return rec
}
