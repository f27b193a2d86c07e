package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"telemetry-hub/src/broadcast"
	"telemetry-hub/src/logger"
	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"
	"telemetry-hub/src/rate"
	"telemetry-hub/src/sources"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// HubServer
// -----------------------------------------------------------------------------

type HubServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Rate      *rate.Controller
	Broadcast *broadcast.Broadcaster
	Manager   *sources.SourceManager
	engine    *gin.Engine

	// WebSocket sessions
	clients   map[*Client]struct{}
	clientsMu sync.Mutex

	startedAt time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewHubServer(cfg *models.MConfig, log *logger.Logger, rc *rate.Controller, b *broadcast.Broadcaster, mgr *sources.SourceManager) *HubServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HubServer{
		Config:    cfg,
		Logger:    log,
		Rate:      rc,
		Broadcast: b,
		Manager:   mgr,
		engine:    gin.Default(),
		clients:   make(map[*Client]struct{}),
		startedAt: time.Now(),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *HubServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// Source administration
	s.engine.POST("/api/sources", s.postSource)
	s.engine.DELETE("/api/sources/:name", s.deleteSource)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *HubServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)
	return s.engine.Run(addr)
}

// Stop tears down all live sessions. The broadcaster close below unblocks
// every delivery loop.
func (s *HubServer) Stop() error {
	s.clientsMu.Lock()
	for client := range s.clients {
		client.cancel()
		client.conn.Close()
	}
	s.clients = make(map[*Client]struct{})
	s.clientsMu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *HubServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	client.sub = s.Broadcast.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	client.cancel = cancel

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	s.Logger.Info("Client %s connected (%d active)", client.id, count)

	go client.writePump()
	go client.deliverPump(ctx)
	go client.readPump()
}

// -----------------------------------------------------------------------------

func (s *HubServer) unregister(client *Client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, client)
	count := len(s.clients)
	s.clientsMu.Unlock()

	client.cancel()
	s.Broadcast.Unsubscribe(client.sub)
	close(client.send)
	metrics.ActiveSessions.Set(float64(count))
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *HubServer) getHealth(c *gin.Context) {
	s.clientsMu.Lock()
	connections := len(s.clients)
	s.clientsMu.Unlock()

	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": connections,
		"uptime_sec":  int64(time.Since(s.startedAt).Seconds()),
		"sources":     s.Manager.Health(),
	})
}

// -----------------------------------------------------------------------------

func (s *HubServer) getConfig(c *gin.Context) {
	min, max := s.Rate.Bounds()

	c.JSON(200, gin.H{
		"name":            s.Config.Name,
		"rate_default_ms": s.Config.Rate.DefaultMs,
		"rate_min_ms":     min.Milliseconds(),
		"rate_max_ms":     max.Milliseconds(),
		"rate_current_ms": s.Rate.Get(models.KindPrice).Milliseconds(),
		"pipeline_mode":   s.Config.Pipeline.Mode,
		"buffer_size":     s.Config.Session.BufferSize,
	})
}

// -----------------------------------------------------------------------------

func (s *HubServer) getMetrics(c *gin.Context) {
	s.clientsMu.Lock()
	connections := len(s.clients)
	gaps := uint64(0)
	for client := range s.clients {
		gaps += client.sub.Gaps()
	}
	s.clientsMu.Unlock()

	c.JSON(200, gin.H{
		"connections":     connections,
		"published_total": s.Broadcast.Published(),
		"subscriber_gaps": gaps,
		"messages_total":  metrics.MessageCount(),
		"sources":         s.Manager.Health(),
	})
}

// -----------------------------------------------------------------------------
// Source Administration
// -----------------------------------------------------------------------------

func (s *HubServer) postSource(c *gin.Context) {
	var srcCfg models.MSourceConfig
	if err := c.ShouldBindJSON(&srcCfg); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	source, err := sources.BuildSource(srcCfg, s.Rate, s.Config.LogLevel)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.Manager.AddSource(source); err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}

	s.Logger.Info("Source %s (%s) added via API", srcCfg.Name, srcCfg.Type)
	c.JSON(201, gin.H{"name": srcCfg.Name, "type": srcCfg.Type})
}

// -----------------------------------------------------------------------------

func (s *HubServer) deleteSource(c *gin.Context) {
	name := c.Param("name")
	if err := s.Manager.RemoveSource(name); err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}

	s.Logger.Info("Source %s removed via API", name)
	c.JSON(200, gin.H{"name": name})
}
