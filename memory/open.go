package memory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/config"
)

// OpenLongTerm 按配置选择长期记忆后端
func OpenLongTerm(cfg config.MemoryConfig, logger *zap.Logger) (LongTermStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewVectorStore(0), nil
	case "redis":
		return NewRedisStore(cfg.Redis, logger)
	case "sql":
		return NewSQLStore(cfg.SQL, logger)
	default:
		return nil, fmt.Errorf("unsupported memory backend: %s (supported: memory, redis, sql)", cfg.Backend)
	}
}
