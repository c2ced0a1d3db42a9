package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/models"
	"symbollist-observer/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ interfaces.IDataExchanger = (*APIServer)(nil)
	_ interfaces.IRecordSink    = (*APIServer)(nil)
)

// -----------------------------------------------------------------------------
// APIServer serves the REST control API, Prometheus metrics and the live
// record stream.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config     *models.MConfig
	Controller interfaces.ISymbolListController
	Store      interfaces.IDatabase // optional
	Metrics    *metrics.Metrics     // optional
	Logger     *logger.Logger
	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan []models.DecodedRecord
	register   chan *Client
	unregister chan *Client
	replies    chan clientReply
	done       chan struct{}
	stopOnce   sync.Once

	// Recent records replayed to new clients
	history    *utils.RingBuffer[models.DecodedRecord]
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, controller interfaces.ISymbolListController, store interfaces.IDatabase, m *metrics.Metrics, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Controller: controller,
		Store:      store,
		Metrics:    m,
		Logger:     logger,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		// Buffered so decode bursts do not stall the event loop
		broadcast:  make(chan []models.DecodedRecord, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan clientReply, 16),
		done:       make(chan struct{}),
		history:    utils.NewRingBuffer[models.DecodedRecord](cfg.HistorySize),
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// Engine exposes the router, mainly for tests.
func (s *APIServer) Engine() *gin.Engine {
	return s.engine
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/watchlist", s.getWatchList)
	api.GET("/items", s.getItems)
	api.GET("/symbols", s.getSymbols)
	api.GET("/symbols/stored", s.getStoredSymbols)
	api.GET("/symbols/markets", s.getSymbolMarkets)
	api.GET("/refresh", s.getRefresh)
	api.POST("/subscriptions", s.postSubscription)
	api.DELETE("/subscriptions", s.deleteAllSubscriptions)
	api.DELETE("/subscriptions/:item", s.deleteSubscription)

	if reg := s.Metrics.Registry(); reg != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and blocks serving HTTP until Stop.
func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.runHub()

	s.httpServer = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Record sink
// -----------------------------------------------------------------------------

func (s *APIServer) Name() string {
	return "websocket"
}

func (s *APIServer) Publish(records []models.DecodedRecord) error {
	s.Broadcast(records)
	return nil
}

func (s *APIServer) Close() error {
	return s.Stop()
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) itemName(raw string) string {
	return models.ResolveItemName(strings.TrimSpace(raw), s.Controller.ServiceName())
}

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	buffered := s.history.Size()
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"service":          s.Controller.ServiceName(),
		"connections":      connections,
		"history":          buffered,
		"watched":          len(s.Controller.GetWatchList()),
		"refresh_complete": s.Controller.IsRefreshComplete(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":         s.Config.Name,
		"service":      s.Config.ServiceName,
		"items":        s.Config.Items,
		"history_size": s.history.Capacity(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getWatchList(c *gin.Context) {
	watch := s.Controller.GetWatchList()
	entries := make([]models.WatchEntry, 0, len(watch))
	for handle, identity := range watch {
		entries = append(entries, models.WatchEntry{Handle: handle, Identity: identity})
	}
	sortEntries(entries)
	c.JSON(http.StatusOK, entries)
}

func (s *APIServer) getItems(c *gin.Context) {
	c.JSON(http.StatusOK, s.Controller.ItemStatuses())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSymbols(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		c.JSON(http.StatusOK, gin.H{"symbols": s.Controller.GetSymbolList()})
		return
	}
	name := s.itemName(item)
	c.JSON(http.StatusOK, gin.H{"item": name, "symbols": s.Controller.GetItemSymbolList(name)})
}

// getSymbolMarkets groups the constituents of an item by exchange MIC.
func (s *APIServer) getSymbolMarkets(c *gin.Context) {
	var symbols []string
	name := ""
	if item := c.Query("item"); item != "" {
		name = s.itemName(item)
		symbols = s.Controller.GetItemSymbolList(name)
	} else {
		symbols = s.Controller.GetSymbolList()
	}

	markets := make(map[string][]string)
	for _, sym := range symbols {
		mic := utils.MICForRIC(sym, "unknown")
		markets[mic] = append(markets[mic], sym)
	}
	c.JSON(http.StatusOK, gin.H{"item": name, "markets": markets})
}

func (s *APIServer) getStoredSymbols(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "storage disabled"})
		return
	}
	item := c.Query("item")
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item is required"})
		return
	}
	identity := models.ItemIdentity{Name: s.itemName(item), ServiceName: s.Controller.ServiceName()}
	keys, err := s.Store.LoadSymbolList(identity)
	if err != nil {
		s.Logger.Error("Load stored symbols for %s: %v", identity.Key(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": identity.Name, "symbols": keys})
}

func (s *APIServer) getRefresh(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		c.JSON(http.StatusOK, gin.H{"complete": s.Controller.IsRefreshComplete()})
		return
	}
	name := s.itemName(item)
	c.JSON(http.StatusOK, gin.H{"item": name, "complete": s.Controller.IsItemRefreshComplete(name)})
}

// -----------------------------------------------------------------------------

type subscriptionRequest struct {
	Item string `json:"item" binding:"required"`
}

func (s *APIServer) postSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := s.itemName(req.Item)
	if err := s.Controller.SendRequest(name); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"item": name})
}

func (s *APIServer) deleteSubscription(c *gin.Context) {
	name := s.itemName(c.Param("item"))
	s.Controller.CloseRequest(name)
	c.JSON(http.StatusOK, gin.H{"item": name})
}

func (s *APIServer) deleteAllSubscriptions(c *gin.Context) {
	s.Controller.CloseAllRequest()
	c.Status(http.StatusNoContent)
}
