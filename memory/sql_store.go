package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/crewflow/config"
	"github.com/BaSui01/crewflow/types"
)

// memoryRecord is the GORM row shape. Embedding and metadata are stored as
// JSON text so the table works on every supported driver.
type memoryRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Scope      string    `gorm:"size:16;index"`
	Content    string    `gorm:"type:text"`
	ProducedBy string    `gorm:"size:128"`
	AgentID    string    `gorm:"size:128"`
	Embedding  string    `gorm:"type:text"`
	Metadata   string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName 指定表名
func (memoryRecord) TableName() string {
	return "crew_memory"
}

// SQLStore is the relational long-term backend.
type SQLStore struct {
	db         *gorm.DB
	scanWindow int
	logger     *zap.Logger
}

// NewSQLStore opens the configured database and migrates the memory table.
// Supported drivers: sqlite (pure Go), postgres, mysql.
func NewSQLStore(cfg config.SQLConfig, logger *zap.Logger) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sql memory backend requires a DSN")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := applyPoolOptions(db, cfg); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&memoryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return NewSQLStoreWithDB(db, logger), nil
}

// applyPoolOptions tunes the underlying sql.DB pool. Zero values keep the
// driver defaults.
func applyPoolOptions(db *gorm.DB, cfg config.SQLConfig) error {
	if cfg.MaxIdleConns <= 0 && cfg.MaxOpenConns <= 0 && cfg.ConnMaxLifetime <= 0 {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// NewSQLStoreWithDB wraps an existing GORM handle without migrating.
// Used by tests and callers that manage their own schema.
func NewSQLStoreWithDB(db *gorm.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:         db,
		scanWindow: defaultScanWindow,
		logger:     logger.With(zap.String("component", "memory.sql")),
	}
}

// Append inserts one entry.
func (s *SQLStore) Append(ctx context.Context, entry *types.MemoryEntry) error {
	if entry == nil || entry.ID == "" {
		return types.NewInvalidRequestError("memory entry has no ID")
	}
	record, err := toRecord(entry)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// Search loads the most recent candidates and ranks them in process by
// cosine similarity.
func (s *SQLStore) Search(ctx context.Context, embedding []float64, topK int) ([]*types.MemoryEntry, error) {
	if topK <= 0 {
		return nil, nil
	}

	var records []memoryRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(s.scanWindow).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	type scored struct {
		entry *types.MemoryEntry
		score float64
	}
	var candidates []scored
	for i := range records {
		entry, err := fromRecord(&records[i])
		if err != nil {
			s.logger.Warn("skipping undecodable memory row",
				zap.String("id", records[i].ID),
				zap.Error(err))
			continue
		}
		if len(entry.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: entry, score: Cosine(embedding, entry.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.CreatedAt.After(candidates[j].entry.CreatedAt)
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]*types.MemoryEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.entry)
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(entry *types.MemoryEntry) (*memoryRecord, error) {
	embedding, err := json.Marshal(entry.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return &memoryRecord{
		ID:         entry.ID,
		Scope:      string(entry.Scope),
		Content:    entry.Content,
		ProducedBy: entry.ProducedBy,
		AgentID:    entry.AgentID,
		Embedding:  string(embedding),
		Metadata:   string(metadata),
		CreatedAt:  entry.CreatedAt,
	}, nil
}

func fromRecord(record *memoryRecord) (*types.MemoryEntry, error) {
	entry := &types.MemoryEntry{
		ID:         record.ID,
		Scope:      types.MemoryScope(record.Scope),
		Content:    record.Content,
		ProducedBy: record.ProducedBy,
		AgentID:    record.AgentID,
		CreatedAt:  record.CreatedAt,
	}
	if record.Embedding != "" {
		if err := json.Unmarshal([]byte(record.Embedding), &entry.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	if record.Metadata != "" {
		if err := json.Unmarshal([]byte(record.Metadata), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return entry, nil
}

var _ LongTermStore = (*SQLStore)(nil)
