package main

import (
	"fmt"

	"symbollist-observer/src/config"
	"symbollist-observer/src/dictionary"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/server"
	"symbollist-observer/src/session"
	"symbollist-observer/src/sinks"
	"symbollist-observer/src/storage"
)

// -----------------------------------------------------------------------------

// setupDictionary loads the field dictionary, or returns an empty one when no
// files are configured. Fields are then keyed by their numeric ID.
func setupDictionary(conf *config.Config, appLogger *logger.Logger) (*dictionary.FieldDictionary, error) {
	if conf.Dictionary.FieldPath == "" {
		appLogger.Warning("No field dictionary configured; fields will be keyed by FID")
		return dictionary.New(), nil
	}
	dictLogger := logger.NewLogger(conf, "Dictionary")
	return dictionary.Load(conf.Dictionary.FieldPath, conf.Dictionary.EnumPath, dictLogger)
}

// -----------------------------------------------------------------------------

// setupSession connects to the NATS bridge.
func setupSession(conf *config.Config, appLogger *logger.Logger) (*session.NatsSession, error) {
	sess := session.NewNatsSession(conf.Session, logger.NewLogger(conf, "NatsSession"))
	if err := sess.Connect(conf.Session.ConnectRetries); err != nil {
		return nil, err
	}
	appLogger.Info("Session connected to %s (prefix %s)", sess.URL, sess.Prefix)
	return sess, nil
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(conf *config.Config, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	if !conf.Sinks.Storage {
		return nil, nil
	}

	dbLogger := logger.NewLogger(conf, "Storage")
	db, err := storage.New(conf.MConfig, dbLogger)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	appLogger.Info("Storage ready (%s)", conf.Storage.DBType)
	return db, nil
}

// -----------------------------------------------------------------------------

// setupSinks fans records out to every enabled consumer.
func setupSinks(
	conf *config.Config,
	srv *server.APIServer,
	db interfaces.IDatabase,
	sess *session.NatsSession,
	m *metrics.Metrics,
	appLogger *logger.Logger,
) *sinks.MultiSinkManager {
	var all []interfaces.IRecordSink

	if conf.Sinks.Websocket {
		all = append(all, srv)
	}
	if db != nil {
		all = append(all, sinks.NewStorageSink(db))
	}
	if conf.Sinks.NATS && sess != nil && sess.Conn() != nil {
		all = append(all, sinks.NewNatsSink(sess.Conn(), conf.Sinks.Subject, logger.NewLogger(conf, "NatsSink")))
	}

	manager := sinks.NewMultiSinkManager(all, m, logger.NewLogger(conf, "Sinks"))
	appLogger.Info("Publishing records to %d sinks: %v", len(all), manager.Names())
	return manager
}
