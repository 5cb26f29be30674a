package peerproxy

import (
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/api"
	"github.com/dep2p/go-peerproxy/internal/debug/introspect"
	"github.com/dep2p/go-peerproxy/internal/metrics"
	"github.com/dep2p/go-peerproxy/internal/relay"
	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

// buildFxApp 构建 Fx 应用
//
// 组装所有内部模块：
//  1. 指标（Registry + Metrics）
//  2. 路由引擎（注册表、待处理表、选择策略）
//  3. 对外服务（HTTP/WebSocket）
//  4. 自省服务（按配置启用）
func buildFxApp(cfg *config.Config, node *Node) (*fx.App, error) {
	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg),

		// 基础组件
		metrics.Module,
		relay.Module,
		api.Module,

		// 诊断组件（内部按配置自行禁用）
		introspect.Module(),

		// 回填门面
		fx.Invoke(func(router *relay.Router, server *api.Server, params injectParams) {
			node.router = router
			node.apiServer = server
			node.introspect = params.Introspect
		}),

		// 静默 Fx 自身的日志，组件日志走统一的 slog
		fx.NopLogger,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	}

	return fx.New(modules...), nil
}

// injectParams 可选组件的注入参数
type injectParams struct {
	fx.In

	Introspect *introspect.Server `optional:"true"`
}

// applyLogConfig 应用日志配置
func applyLogConfig(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: log.ParseLevel(cfg.Level)}
	switch cfg.Format {
	case "json":
		log.SetDefault(log.NewJSON(os.Stderr, opts))
	default:
		log.SetDefault(log.New(os.Stderr, opts))
	}
}
