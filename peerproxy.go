package peerproxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/api"
	"github.com/dep2p/go-peerproxy/internal/debug/introspect"
	"github.com/dep2p/go-peerproxy/internal/relay"
	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

var logger = log.Logger("peerproxy")

// Version 当前版本
const Version = "v1.0.0"

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 中继状态
type NodeState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle NodeState = iota

	// StateStarting 启动中（Fx App 启动中）
	StateStarting

	// StateRunning 运行中（正常工作状态）
	StateRunning

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// 启动超时配置
const (
	// startTimeout 启动超时（Fx App Start）
	startTimeout = 30 * time.Second

	// stopTimeout 停止超时（Fx App Stop）
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node PeerProxy 中继
//
// Node 是用户与中继交互的主入口。它是一个门面，聚合了
// 路由引擎、对外服务与可选的自省服务。
//
// 使用示例：
//
//	node, err := peerproxy.New(
//	    peerproxy.WithListenAddr(":8000"),
//	    peerproxy.WithSelector("round_robin"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
type Node struct {
	// config 最终配置
	config *config.Config

	// app Fx 应用
	app *fx.App

	// 核心组件（由 Fx 注入）
	router     *relay.Router
	apiServer  *api.Server
	introspect *introspect.Server

	mu      sync.Mutex
	state   NodeState
	started bool
	closed  bool
}

// New 创建中继节点
//
// 只组装组件，不开始监听；调用 Start 后生效。
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg, err := o.toConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	applyLogConfig(cfg.Log)

	node := &Node{
		config: cfg,
		state:  StateIdle,
	}

	app, err := buildFxApp(cfg, node)
	if err != nil {
		return nil, err
	}
	node.app = app

	return node, nil
}

// Start 启动中继
//
// 启动路由引擎、对外服务与（按配置）自省服务。
// 可以 Start/Stop 交替调用，Close 之后不可再启动。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	logger.Info("正在启动中继", "version", Version, "addr", n.config.Server.ListenAddr)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		n.state = StateIdle
		logger.Error("中继启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.started = true
	n.state = StateRunning
	logger.Info("中继已启动", "addr", n.apiServer.Addr())
	return nil
}

// Stop 停止中继
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	if !n.started {
		return ErrNotStarted
	}

	logger.Info("正在停止中继")

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	err := n.app.Stop(stopCtx)
	n.started = false
	n.state = StateStopped
	if err != nil {
		logger.Error("中继停止出错", "error", err)
		return err
	}

	logger.Info("中继已停止")
	return nil
}

// Close 关闭中继并释放资源
//
// 幂等；关闭后节点不可再启动。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if n.started {
		return n.stopLocked(context.Background())
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              只读访问器
// ════════════════════════════════════════════════════════════════════════════

// State 返回当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Addr 返回对外服务的实际监听地址
func (n *Node) Addr() string {
	if n.apiServer == nil {
		return ""
	}
	return n.apiServer.Addr()
}

// IntrospectAddr 返回自省服务地址，未启用时返回空串
func (n *Node) IntrospectAddr() string {
	if n.introspect == nil {
		return ""
	}
	return n.introspect.Addr()
}

// Peers 返回当前在线对端身份
func (n *Node) Peers() []string {
	if n.router == nil {
		return nil
	}
	return n.router.Peers()
}

// PeerCount 返回在线对端数
func (n *Node) PeerCount() int {
	if n.router == nil {
		return 0
	}
	return n.router.PeerCount()
}

// SessionCount 返回打开的会话总数
func (n *Node) SessionCount() int {
	if n.router == nil {
		return 0
	}
	return n.router.SessionCount()
}

// PendingCount 返回待处理请求条目数
func (n *Node) PendingCount() int {
	if n.router == nil {
		return 0
	}
	return n.router.PendingCount()
}

// Config 返回节点的最终配置
func (n *Node) Config() *config.Config {
	return n.config
}
