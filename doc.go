// Package peerproxy 提供 WebSocket 汇合中继
//
// PeerProxy 让互相连接到同一中继的对端代替彼此抓取 HTTP 资源：
// 请求者通过 WebSocket 提交 request，中继挑选一个执行者转发
// fetch，执行者抓取后把 response（或流式 stream_chunk）发回，
// 中继按关联 ID 把结果逐字转发给请求者。
//
// # 核心概念
//
//   - Node: 中继进程，用户交互的主入口
//   - Session: 一条对端 WebSocket 连接；同一身份可持有多条
//   - Router: 请求路由引擎，维护注册表与待处理请求表
//
// # 快速开始
//
//	import "github.com/dep2p/go-peerproxy"
//
//	// 1. 创建并启动中继
//	node, err := peerproxy.New(
//	    peerproxy.WithListenAddr(":8000"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 2. 对端接入 ws://host:8000/ws/{peer_id}
//	// 3. 控制面提交 POST http://host:8000/request
//
// # 文件组织
//
//	go-peerproxy/
//	├── peerproxy.go          # Node 门面、生命周期
//	├── options.go            # WithXxx 配置选项
//	├── errors.go             # 错误定义
//	├── fx.go                 # Fx 应用组装
//	│
//	├── config/               # 统一配置（JSON 加载、校验、预设）
//	├── internal/relay/       # 路由引擎（注册表、待处理表、选择策略）
//	├── internal/api/         # 对外 HTTP/WebSocket 服务
//	├── internal/metrics/     # Prometheus 指标
//	├── internal/debug/       # 本地自省服务
//	└── cmd/relayd/           # 中继守护进程
//
// 更多信息请访问: https://github.com/dep2p/go-peerproxy
package peerproxy
