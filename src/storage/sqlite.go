package storage

import (
	"database/sql"
	"time"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	table:       func(name string) string { return name },
	placeholder: func(int) string { return "?" },
	idColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
}

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	recordStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		recordStore: recordStore{Logger: log, dialect: sqliteDialect},
		Config:      cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	return helpers.RetryWithBackoff("open sqlite", 3, 200*time.Millisecond, d.Logger, func() error {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return helpers.NewDatabaseError("open "+dsn, err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return helpers.NewDatabaseError("ping "+dsn, err)
		}

		// One writer keeps modernc from returning SQLITE_BUSY under WAL.
		db.SetMaxOpenConns(1)
		d.DB = db

		// PRAGMA optimizations
		if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
			d.Logger.Warning("Failed to set WAL mode: %v", err)
		}
		if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
			d.Logger.Warning("Failed to set synchronous mode: %v", err)
		}

		if err := d.createTables(); err != nil {
			return err
		}
		if err := d.CleanupOldData(d.Config.Storage.RetentionDays); err != nil {
			d.Logger.Warning("Cleanup failed: %v", err)
		}
		d.Logger.Info("SQLite store ready at %s", dsn)
		return nil
	})
}
