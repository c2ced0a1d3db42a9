package storage

import (
	"fmt"
	"strings"

	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// New returns the backend selected by storage.db_type.
func New(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch strings.ToLower(cfg.Storage.DBType) {
	case "", "sqlite":
		return NewSQLiteDB(cfg, log)
	case "postgres", "postgresql":
		return NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported db_type '%s'", cfg.Storage.DBType)
	}
}
