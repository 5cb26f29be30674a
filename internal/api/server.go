package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/relay"
	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

var logger = log.Logger("api/server")

// Version 对外报告的协议版本号
const Version = "1.0.0"

// Server 对外 HTTP/WebSocket 服务
//
// 承载 WebSocket 接入点与控制面端点，所有业务语义
// 委托给路由引擎。
type Server struct {
	config   *config.Config
	router   *relay.Router
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu       sync.Mutex
	started  bool
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer 创建对外服务
func NewServer(cfg *config.Config, router *relay.Router) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		router: router,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Server.ReadBufferSize,
			WriteBufferSize: cfg.Server.WriteBufferSize,
			// 对端来自任意源，握手不做同源限制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/welcome", s.handleWelcome)
	s.engine.GET("/peers", s.handlePeers)
	s.engine.POST("/request", s.handleSubmit)
	s.engine.GET("/ws/:peer_id", s.handleWebSocket)
}

// Start 启动对外服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", s.config.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Server.ListenAddr, err)
	}
	s.listener = listener
	s.httpSrv = &http.Server{Handler: s.engine}
	s.started = true

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("对外服务异常退出", "error", err)
		}
	}()

	logger.Info("对外服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止对外服务
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	logger.Info("正在停止对外服务")
	s.started = false
	return s.httpSrv.Shutdown(ctx)
}

// Addr 返回实际监听地址（支持 ":0" 随机端口）
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleRoot 欢迎信息（JSON）
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "PeerProxy relay",
		"version":      Version,
		"description":  "WebSocket rendezvous relay for peer-to-peer proxy fetches",
		"status":       "running",
		"active_peers": s.router.PeerCount(),
	})
}

// welcomeHTML 浏览器可读的欢迎页模板
const welcomeHTML = `<!DOCTYPE html>
<html>
<head><title>PeerProxy Relay</title></head>
<body>
<h1>PeerProxy Relay</h1>
<p>Version %s</p>
<p>Active peers: %d</p>
<p>Connect via <code>/ws/{peer_id}</code>, submit via <code>POST /request</code>.</p>
</body>
</html>
`

// handleWelcome 欢迎页（HTML）
func (s *Server) handleWelcome(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, fmt.Sprintf(welcomeHTML, Version, s.router.PeerCount()))
}

// handlePeers 在线对端列表
func (s *Server) handlePeers(c *gin.Context) {
	peers := s.router.Peers()
	c.JSON(http.StatusOK, gin.H{
		"peers": peers,
		"count": len(peers),
	})
}

// submitPayload POST /request 的请求体
type submitPayload struct {
	PeerID      string            `json:"peer_id" binding:"required"`
	URL         string            `json:"url" binding:"required"`
	RequestType string            `json:"request_type"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Body        json.RawMessage   `json:"body"`
}

// handleSubmit 控制面提交代理请求
func (s *Server) handleSubmit(c *gin.Context) {
	var payload submitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	requestID, err := s.router.Submit(relay.SubmitRequest{
		PeerID:      payload.PeerID,
		URL:         payload.URL,
		RequestType: payload.RequestType,
		Method:      payload.Method,
		Headers:     payload.Headers,
		Body:        payload.Body,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
	case errors.Is(err, relay.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
	case errors.Is(err, relay.ErrPeerNotConnected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer not connected"})
	case errors.Is(err, relay.ErrNoExecutor):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no peer available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleWebSocket 对端接入
//
// 升级后的连接交给路由引擎驱动，处理器阻塞到会话结束。
func (s *Server) handleWebSocket(c *gin.Context) {
	peerID := c.Param("peer_id")
	if peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer_id required"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket 升级失败",
			"peer", log.TruncateID(peerID, 16),
			"error", err)
		return
	}

	if s.config.Server.MaxMessageSize > 0 {
		conn.SetReadLimit(s.config.Server.MaxMessageSize)
	}

	session := s.router.NewPeerSession(peerID, conn)
	if err := s.router.ServeSession(session); err != nil {
		logger.Warn("会话驱动失败",
			"peer", log.TruncateID(peerID, 16),
			"error", err)
		_ = conn.Close()
	}
}
