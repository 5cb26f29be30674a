package introspect

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/relay"
)

// Module 返回自省服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// IntrospectParams 自省服务依赖参数
type IntrospectParams struct {
	fx.In

	Config   *config.Config      `optional:"true"`
	Router   *relay.Router       `optional:"true"`
	Gatherer prometheus.Gatherer `optional:"true"`
}

// IntrospectOutput 自省服务输出
type IntrospectOutput struct {
	fx.Out

	Server *Server `optional:"true"`
}

// configFrom 从统一配置派生自省服务配置
func configFrom(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Debug.EnableIntrospect {
		return nil // 禁用时返回 nil
	}
	addr := cfg.Debug.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr: addr,
	}
}

// NewFromParams 从参数创建自省服务
func NewFromParams(params IntrospectParams) IntrospectOutput {
	cfg := configFrom(params.Config)
	if cfg == nil {
		return IntrospectOutput{} // 禁用时返回空输出
	}

	// 设置依赖组件
	cfg.Router = params.Router
	cfg.Gatherer = params.Gatherer

	return IntrospectOutput{
		Server: New(*cfg),
	}
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return // 禁用时跳过
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
