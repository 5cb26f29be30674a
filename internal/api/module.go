package api

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/relay"
)

// Module 对外服务的 Fx 模块
var Module = fx.Module("api",
	fx.Provide(NewServerWithLifecycle),
)

// ServerParams 构造对外服务所需的依赖
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Router    *relay.Router
}

// NewServerWithLifecycle 构造对外服务并挂接生命周期
func NewServerWithLifecycle(params ServerParams) *Server {
	server := NewServer(params.Config, params.Router)

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})

	return server
}
