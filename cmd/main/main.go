package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"symbollist-observer/src/config"
	"symbollist-observer/src/handler"
	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/models"
	"symbollist-observer/src/server"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	if err := logger.Init(conf.LogLevel); err != nil {
		fmt.Printf("Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(conf, conf.Name)
	helpers.ApplyMemoryLimit(appLogger)

	// 4. Setup Components
	dict, err := setupDictionary(conf, appLogger)
	if err != nil {
		appLogger.Critical("Failed to load field dictionary: %v", err)
	}

	sess, err := setupSession(conf, appLogger)
	if err != nil {
		appLogger.Critical("Failed to connect session: %v", err)
	}
	defer sess.Close()

	db, err := setupDatabase(conf, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}

	m := metrics.New()
	queue := make(chan models.MEvent, conf.Session.QueueSize)
	h := handler.NewSymbolListHandler(sess, queue, dict, conf.ServiceName, m, logger.NewLogger(conf, "SymbolListHandler"))
	h.SetDebugMode(conf.Debug)

	srv := server.NewAPIServer(conf.MConfig, h, db, m, logger.NewLogger(conf, "APIServer"))
	sinkManager := setupSinks(conf, srv, db, sess, m, appLogger)
	defer sinkManager.Close()

	// 5. Start Servers
	stopServers := startServers(srv, h, conf, *configPath, appLogger)
	defer stopServers()

	// 6. Request configured items
	for _, item := range conf.Items {
		if err := h.SendRequest(item); err != nil {
			appLogger.Error("Request for %s failed: %v", item, err)
		}
	}

	// Lifecycle Management
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startScheduler(ctx, conf, h, db, appLogger)

	// 7. Run Event Loop (Blocking)
	runner := handler.NewRunner(h, sinkManager, logger.NewLogger(conf, "Runner"))
	if err := runner.Run(ctx, queue); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Event loop failed: %v", err)
	}

	appLogger.Info("Shutting down...")
	h.CloseAllRequest()
	appLogger.Info("Shutdown complete. %d records published, %d sink errors.", runner.Published(), runner.Errors.ErrorCount)
}
