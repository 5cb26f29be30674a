package relay

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/metrics"
)

// Module 路由引擎的 Fx 模块
var Module = fx.Module("relay",
	fx.Provide(NewRouter),
)

// RouterParams 构造路由引擎所需的依赖
type RouterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Metrics   *metrics.Metrics
}

// RouterResult 路由引擎的输出
type RouterResult struct {
	fx.Out

	Router *Router
}

// NewRouter 从配置构造路由引擎并挂接生命周期
func NewRouter(params RouterParams) (RouterResult, error) {
	selector, err := NewSelector(params.Config.Relay.Selector)
	if err != nil {
		return RouterResult{}, err
	}

	router, err := New(
		WithSelector(selector),
		WithKeepAlive(params.Config.KeepAlive.Enabled, params.Config.KeepAlive.Interval.Duration()),
		WithWriteTimeout(params.Config.Server.WriteTimeout.Duration()),
		WithPendingTTL(params.Config.Relay.PendingTTL.Duration(), params.Config.Relay.SweepInterval.Duration()),
		WithMetrics(params.Metrics),
	)
	if err != nil {
		return RouterResult{}, err
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return router.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return router.Stop(ctx)
		},
	})

	return RouterResult{Router: router}, nil
}
