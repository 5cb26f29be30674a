package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-peerproxy/internal/metrics"
	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

var logger = log.Logger("relay/router")

// Router 请求路由引擎
//
// 持有注册表与待处理请求表，按 doc.go 描述的协议完成校验、
// 关联与转发。每条会话由独立 goroutine 驱动（ServeSession），
// 两张表的互斥锁串行化所有冲突访问。
type Router struct {
	registry *Registry
	pending  *PendingTable
	selector Selector
	metrics  *metrics.Metrics
	config   *Config

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New 创建路由引擎
func New(opts ...Option) (*Router, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Selector == nil {
		sel, err := NewSelector("")
		if err != nil {
			return nil, err
		}
		config.Selector = sel
	}

	m := config.Metrics
	if m == nil {
		// 独立 Registry，避免单测/嵌入场景的重复注册冲突
		m = metrics.New(prometheus.NewRegistry())
	}

	return &Router{
		registry: NewRegistry(),
		pending:  NewPendingTable(),
		selector: config.Selector,
		metrics:  m,
		config:   config,
	}, nil
}

// Start 启动路由引擎
func (r *Router) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	logger.Info("正在启动路由引擎", "selector", r.selector.Name(), "pendingTTL", r.config.PendingTTL)

	// 使用 context.Background() 而不是传入的 ctx
	// 因为 Fx OnStart 的 ctx 在返回后会被取消，导致后台循环提前退出
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.started = true

	if r.config.PendingTTL > 0 {
		go r.sweepLoop()
	}

	logger.Info("路由引擎启动成功")
	return nil
}

// Stop 停止路由引擎
func (r *Router) Stop(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}

	logger.Info("正在停止路由引擎")

	if r.cancel != nil {
		r.cancel()
	}
	r.started = false

	logger.Info("路由引擎已停止")
	return nil
}

// NewPeerSession 以路由配置的发送超时包装一条连接
func (r *Router) NewPeerSession(identity string, conn Conn) *Session {
	return NewSession(identity, conn, r.config.WriteTimeout)
}

// ServeSession 驱动一条会话的完整生命周期
//
// 阻塞直到会话断开：注册 → 保活 → 读循环 → 注销 → 清理。
// 若会话是其身份名下的最后一条，该身份相关的待处理请求
// 全部清除。
func (r *Router) ServeSession(s *Session) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	identity := s.Identity()
	if identity == "" {
		return ErrEmptyIdentity
	}

	r.registry.Register(identity, s)
	r.syncGauges()
	logger.Info("对端已连接",
		"identity", log.TruncateID(identity, 16),
		"session", log.TruncateID(s.ID(), 8),
		"peers", r.registry.Size())

	if r.config.KeepAliveEnabled && r.config.KeepAliveInterval > 0 {
		go r.keepAlive(s)
	}

	// 读循环：本会话的消息严格按到达顺序处理
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Warn("会话读取异常",
					"identity", log.TruncateID(identity, 16),
					"error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		r.HandleMessage(s, data)
	}

	s.Close()
	if r.registry.Unregister(identity, s) {
		// 身份的最后一条会话退出，清除其名下的待处理请求
		purged := r.pending.PurgeIdentity(identity)
		logger.Info("对端已断开",
			"identity", log.TruncateID(identity, 16),
			"purgedRequests", purged,
			"peers", r.registry.Size())
	}
	r.syncGauges()
	return nil
}

// HandleMessage 处理一条入站消息
//
// 无法解码的负载记录日志后跳过，会话保持打开。
func (r *Router) HandleMessage(s *Session, raw []byte) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		logger.Warn("无法解码的入站消息，跳过",
			"identity", log.TruncateID(s.Identity(), 16),
			"error", err)
		return
	}

	switch msg.Type {
	case TypeRequest:
		r.handleRequest(s, msg)

	case TypeResponse, TypeStreamChunk, TypeError:
		r.relayToRequester(s, msg, raw)

	case TypePing:
		// 应答携带与请求相同的（可能为空的）关联 ID
		if err := s.Send(&Message{Type: TypePong, RequestID: msg.RequestID}); err != nil {
			logger.Debug("pong 发送失败",
				"identity", log.TruncateID(s.Identity(), 16),
				"error", err)
		}

	default:
		logger.Debug("未知消息类型，跳过",
			"type", msg.Type,
			"identity", log.TruncateID(s.Identity(), 16))
	}
}

// handleRequest 处理 request 消息
//
// 校验失败或找不到执行者时，直接向发送方应答 error，
// 不产生任何注册表/待处理表变更。
func (r *Router) handleRequest(s *Session, msg *Message) {
	from := msg.From
	if from == "" {
		from = s.Identity()
	}

	requestID := msg.RequestID
	if requestID == "" {
		requestID = deriveRequestID(from, msg.URL)
	}

	if !isValidURL(msg.URL) {
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInvalidURL).Inc()
		logger.Warn("URL 校验失败",
			"identity", log.TruncateID(from, 16),
			"url", msg.URL)
		r.replyError(s, requestID, "invalid url")
		return
	}

	// 解析执行者：显式指定优先，否则按策略自动挑选
	var executor string
	if msg.TargetPeer != "" {
		if !r.registry.Contains(msg.TargetPeer) {
			r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeUnknownTarget).Inc()
			logger.Warn("指定的执行者不在线",
				"target", log.TruncateID(msg.TargetPeer, 16),
				"requestID", requestID)
			r.replyError(s, requestID, "target peer not connected")
			return
		}
		executor = msg.TargetPeer
	} else {
		var ok bool
		executor, ok = r.selector.Select(from, r.registry.Identities())
		if !ok {
			r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeNoExecutor).Inc()
			logger.Warn("没有可用执行者", "requestID", requestID)
			r.replyError(s, requestID, "no peer available")
			return
		}
	}

	kind := msg.RequestType
	if kind == "" {
		kind = KindStatic
	}
	method := strings.ToUpper(msg.Method)
	if method == "" {
		method = "GET"
	}

	r.pending.Create(requestID, from, kind)
	r.pending.AssignExecutor(requestID, executor)
	r.metrics.PendingRequests.Set(float64(r.pending.Len()))

	fetch := &Message{
		Type:        TypeFetch,
		URL:         msg.URL,
		RequestID:   requestID,
		RequestType: kind,
		Method:      method,
		Headers:     msg.Headers,
		Body:        msg.Body,
		From:        from,
	}
	payload, err := fetch.Encode()
	if err != nil {
		logger.Error("fetch 编码失败", "requestID", requestID, "error", err)
		return
	}

	r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeForwarded).Inc()
	logger.Info("转发请求",
		"requestID", requestID,
		"executor", log.TruncateID(executor, 16),
		"kind", kind)

	// 排除发送方自己的会话：请求者不应收到自己触发的 fetch
	if delivered := r.fanout(executor, payload, s, TypeFetch); delivered == 0 {
		logger.Warn("fetch 未能投递到任何会话",
			"requestID", requestID,
			"executor", log.TruncateID(executor, 16))
	}
}

// relayToRequester 处理 response/stream_chunk/error 消息
//
// 按关联 ID 查找请求者并逐字转发原始负载；
// 关联 ID 未知（过期/伪造）时静默丢弃。
func (r *Router) relayToRequester(s *Session, msg *Message, raw []byte) {
	if msg.RequestID == "" {
		r.metrics.DroppedStale.Inc()
		logger.Debug("缺少关联 ID，丢弃",
			"type", msg.Type,
			"identity", log.TruncateID(s.Identity(), 16))
		return
	}

	entry, ok := r.pending.Lookup(msg.RequestID)
	if !ok {
		r.metrics.DroppedStale.Inc()
		logger.Debug("未知关联 ID，静默丢弃",
			"type", msg.Type,
			"requestID", msg.RequestID)
		return
	}

	r.fanout(entry.Requester, raw, nil, msg.Type)
}

// SubmitRequest HTTP 入口提交的代理请求
type SubmitRequest struct {
	// PeerID 请求者身份（必须已连接）
	PeerID string

	// URL 待抓取的资源地址
	URL string

	// RequestType 请求类型，缺省 "static"
	RequestType string

	// Method HTTP 方法，缺省 GET
	Method string

	// Headers 透传的请求头
	Headers map[string]string

	// Body 请求体
	Body json.RawMessage
}

// Submit 通过 HTTP 控制面提交代理请求
//
// 与 WebSocket 路径共用同一套校验和转发规则；
// 响应仍通过请求者的 WebSocket 会话送达。
func (r *Router) Submit(req SubmitRequest) (string, error) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return "", ErrNotStarted
	}

	if !isValidURL(req.URL) {
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInvalidURL).Inc()
		return "", ErrInvalidURL
	}
	if !r.registry.Contains(req.PeerID) {
		return "", ErrPeerNotConnected
	}

	requestID := deriveRequestID(req.PeerID, req.URL)

	executor, ok := r.selector.Select(req.PeerID, r.registry.Identities())
	if !ok {
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeNoExecutor).Inc()
		return "", ErrNoExecutor
	}

	kind := req.RequestType
	if kind == "" {
		kind = KindStatic
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}

	r.pending.Create(requestID, req.PeerID, kind)
	r.pending.AssignExecutor(requestID, executor)
	r.metrics.PendingRequests.Set(float64(r.pending.Len()))

	fetch := &Message{
		Type:        TypeFetch,
		URL:         req.URL,
		RequestID:   requestID,
		RequestType: kind,
		Method:      method,
		Headers:     req.Headers,
		Body:        req.Body,
		From:        req.PeerID,
	}
	payload, err := fetch.Encode()
	if err != nil {
		return "", err
	}

	r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeForwarded).Inc()
	logger.Info("转发 HTTP 入口请求",
		"requestID", requestID,
		"executor", log.TruncateID(executor, 16))
	r.fanout(executor, payload, nil, TypeFetch)

	return requestID, nil
}

// ============================================================================
//                              内部方法
// ============================================================================

// fanout 扇出负载并维护指标与清理
func (r *Router) fanout(identity string, payload []byte, exclude *Session, msgType string) int {
	delivered, pruned, vanished := r.registry.Fanout(identity, payload, exclude)

	if delivered > 0 {
		r.metrics.ForwardedTotal.WithLabelValues(msgType).Add(float64(delivered))
	}
	if pruned > 0 {
		r.metrics.SendFailures.Add(float64(pruned))
	}
	if vanished {
		// 剪除掉了该身份的最后一条会话，走与正常断开相同的清理
		purged := r.pending.PurgeIdentity(identity)
		logger.Info("身份因死会话剪除而下线",
			"identity", log.TruncateID(identity, 16),
			"purgedRequests", purged)
	}
	if pruned > 0 || vanished {
		r.syncGauges()
	}
	return delivered
}

// keepAlive 会话保活循环
//
// 建议性探测：发送失败只记录，不驱逐会话；
// 会话关闭或引擎停止时退出。
func (r *Router) keepAlive(s *Session) {
	ticker := time.NewTicker(r.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Ping(); err != nil {
				logger.Debug("保活探测发送失败",
					"identity", log.TruncateID(s.Identity(), 16),
					"error", err)
			}
		}
	}
}

// sweepLoop TTL 清扫循环（仅在 PendingTTL > 0 时运行）
func (r *Router) sweepLoop() {
	interval := r.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.config.PendingTTL)
			if n := r.pending.Sweep(cutoff); n > 0 {
				r.metrics.PendingRequests.Set(float64(r.pending.Len()))
				logger.Info("清扫超龄待处理请求", "swept", n)
			}
		}
	}
}

// syncGauges 同步规模类指标
func (r *Router) syncGauges() {
	r.metrics.ConnectedPeers.Set(float64(r.registry.Size()))
	r.metrics.OpenSessions.Set(float64(r.registry.SessionCount()))
	r.metrics.PendingRequests.Set(float64(r.pending.Len()))
}

// ============================================================================
//                              只读访问器
// ============================================================================

// Peers 返回当前在线身份列表
func (r *Router) Peers() []string {
	return r.registry.Identities()
}

// PeerCount 返回在线身份数
func (r *Router) PeerCount() int {
	return r.registry.Size()
}

// SessionCount 返回打开的会话总数
func (r *Router) SessionCount() int {
	return r.registry.SessionCount()
}

// PendingCount 返回待处理请求条目数
func (r *Router) PendingCount() int {
	return r.pending.Len()
}

// PendingSnapshot 返回待处理请求的副本，供诊断端点使用
func (r *Router) PendingSnapshot() []PendingRequest {
	return r.pending.Snapshot()
}

// SelectorName 返回当前选择策略名称
func (r *Router) SelectorName() string {
	return r.selector.Name()
}

// replyError 向发送方直接应答错误消息
func (r *Router) replyError(s *Session, requestID, text string) {
	if err := s.Send(NewErrorMessage(requestID, text)); err != nil {
		logger.Debug("错误应答发送失败",
			"identity", log.TruncateID(s.Identity(), 16),
			"error", err)
	}
}
