package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	recordStore
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return newPostgresDB(cfg, name, log), nil
}

func newPostgresDB(cfg *models.MConfig, schema string, log *logger.Logger) *PostgresDB {
	return &PostgresDB{
		recordStore: recordStore{Logger: log, dialect: postgresDialect(schema)},
		Config:      cfg,
		Schema:      schema,
	}
}

func postgresDialect(schema string) dialect {
	return dialect{
		name:        "postgres",
		table:       func(name string) string { return fmt.Sprintf(`"%s"."%s"`, schema, name) },
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		idColumn:    "id BIGSERIAL PRIMARY KEY",
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString

	err := helpers.RetryWithBackoff("connect postgres", 5, time.Second, d.Logger, func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return helpers.NewDatabaseError("open postgres", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return helpers.NewDatabaseError("ping postgres", err)
		}
		d.DB = db
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}
	if err := d.CleanupOldData(d.Config.Storage.RetentionDays); err != nil {
		d.Logger.Warning("Cleanup failed: %v", err)
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}
