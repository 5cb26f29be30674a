package introspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-peerproxy/internal/relay"
	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Router 可选的路由引擎，用于中继状态端点
	Router *relay.Router

	// Gatherer 可选的指标采集器，用于 /metrics 端点
	Gatherer prometheus.Gatherer

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	// HTTP 服务器
	server   *http.Server
	listener net.Listener

	// 状态
	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	return &Server{
		config: cfg,
	}
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// 创建路由
	mux := http.NewServeMux()

	// 自省端点
	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/relay", s.handleRelay)
	mux.HandleFunc("/debug/introspect/peers", s.handlePeers)
	mux.HandleFunc("/debug/introspect/requests", s.handleRequests)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	// pprof 端点
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 健康检查
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus 指标
	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	// 自定义处理器
	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}

	// 创建监听器
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	// 创建 HTTP 服务器
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 启动服务
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("自省服务已启动", "addr", s.config.Addr)
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Relay     *RelayInfo   `json:"relay,omitempty"`
	Runtime   *RuntimeInfo `json:"runtime,omitempty"`
}

// RelayInfo 中继状态信息
type RelayInfo struct {
	Selector        string   `json:"selector"`
	Peers           []string `json:"peers"`
	PeerCount       int      `json:"peer_count"`
	SessionCount    int      `json:"session_count"`
	PendingRequests int      `json:"pending_requests"`
}

// RequestInfo 待处理请求条目
type RequestInfo struct {
	RequestID string    `json:"request_id"`
	Requester string    `json:"requester"`
	Executor  string    `json:"executor,omitempty"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleIntrospect 处理完整诊断请求
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	}

	// 收集中继状态
	response.Relay = s.collectRelayInfo()

	// 收集运行时信息
	response.Runtime = s.collectRuntimeInfo()

	s.writeJSON(w, response)
}

// handleRelay 处理中继状态请求
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := s.collectRelayInfo()
	if info == nil {
		http.Error(w, "Relay info not available", http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, info)
}

// handlePeers 处理在线对端列表请求
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.config.Router == nil {
		http.Error(w, "Peer info not available", http.StatusServiceUnavailable)
		return
	}

	peers := s.config.Router.Peers()
	if peers == nil {
		peers = []string{}
	}
	s.writeJSON(w, peers)
}

// handleRequests 处理待处理请求快照
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.config.Router == nil {
		http.Error(w, "Request info not available", http.StatusServiceUnavailable)
		return
	}

	pending := s.config.Router.PendingSnapshot()
	requests := make([]RequestInfo, 0, len(pending))
	for _, p := range pending {
		requests = append(requests, RequestInfo{
			RequestID: p.RequestID,
			Requester: p.Requester,
			Executor:  p.Executor,
			Kind:      p.Kind,
			CreatedAt: p.CreatedAt,
		})
	}

	s.writeJSON(w, requests)
}

// handleRuntime 处理运行时信息请求
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := s.collectRuntimeInfo()
	s.writeJSON(w, info)
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	}

	// 检查核心组件
	if s.config.Router == nil {
		health.Status = "degraded"
	}

	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

// collectRelayInfo 收集中继状态
func (s *Server) collectRelayInfo() *RelayInfo {
	if s.config.Router == nil {
		return nil
	}

	peers := s.config.Router.Peers()
	if peers == nil {
		peers = []string{}
	}

	return &RelayInfo{
		Selector:        s.config.Router.SelectorName(),
		Peers:           peers,
		PeerCount:       s.config.Router.PeerCount(),
		SessionCount:    s.config.Router.SessionCount(),
		PendingRequests: s.config.Router.PendingCount(),
	}
}

// collectRuntimeInfo 收集运行时信息
func (s *Server) collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
