package main

import (
	"context"
	"time"

	"symbollist-observer/src/config"
	"symbollist-observer/src/grpc_control"
	"symbollist-observer/src/handler"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/server"
	"symbollist-observer/src/utils"
)

// -----------------------------------------------------------------------------

// startServers starts the HTTP/WebSocket API and, when a port is configured,
// the gRPC control server. The returned func stops them.
func startServers(
	srv *server.APIServer,
	h *handler.SymbolListHandler,
	conf *config.Config,
	configPath string,
	appLogger *logger.Logger,
) func() {

	// 1. HTTP API + WebSocket
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("API server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if conf.GrpcPort == 0 {
		return func() { _ = srv.Stop() }
	}

	grpcLogger := logger.NewLogger(conf, "ControlService")
	controlService := grpc_control.NewControlService(conf, h, configPath, grpcLogger)
	grpcServer := grpc_control.NewServer(conf.GrpcHost, conf.GrpcPort, controlService, grpcLogger)
	go func() {
		if err := grpcServer.Start(); err != nil {
			appLogger.Error("gRPC server failed: %v", err)
		}
	}()

	return func() {
		grpcServer.Stop()
		_ = srv.Stop()
	}
}

// -----------------------------------------------------------------------------

// retentionStore is implemented by the SQL stores.
type retentionStore interface {
	CleanupOldData(retentionDays int) error
}

// startScheduler re-requests every watched item when a new trading session
// opens, and prunes stored records older than the retention window.
func startScheduler(
	ctx context.Context,
	conf *config.Config,
	controller interfaces.ISymbolListController,
	db interfaces.IDatabase,
	appLogger *logger.Logger,
) {
	if !conf.Scheduler.Enabled {
		return
	}

	interval := time.Duration(conf.Scheduler.IntervalSeconds) * time.Second
	scheduler := utils.NewMarketScheduler(conf.Scheduler.MIC, interval, logger.NewLogger(conf, "MarketScheduler"))

	scheduler.OnMarketOpen(func(day string) {
		for _, item := range controller.WatchedItems() {
			if err := controller.SendRequest(item); err != nil {
				appLogger.Error("Session %s: re-request %s failed: %v", day, item, err)
			}
		}
	})

	if store, ok := db.(retentionStore); ok && conf.Storage.RetentionDays > 0 {
		scheduler.OnMarketOpen(func(day string) {
			if err := store.CleanupOldData(conf.Storage.RetentionDays); err != nil {
				appLogger.Error("Session %s: retention cleanup failed: %v", day, err)
			}
		})
	}

	// Items requested at startup already carry today's image.
	scheduler.MarkDay(time.Now())
	go scheduler.Run(ctx)
}
