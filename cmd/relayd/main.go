// Package main 提供独立的 PeerProxy 中继守护进程
//
// 中继帮助互相连接的对端代替彼此抓取 HTTP 资源：
// 对端通过 WebSocket 接入，请求被转发给另一个在线对端执行。
//
// 使用方法:
//
//	go run main.go -addr :8000
//	go run main.go -config relay.json -introspect
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-peerproxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 解析命令行参数
	addr := flag.String("addr", "", "监听地址（默认 :8000）")
	configFile := flag.String("config", "", "JSON 配置文件路径")
	selector := flag.String("selector", "", "执行者选择策略: first_other/round_robin/random")
	keepAlive := flag.Duration("keepalive", 0, "保活探测间隔（0 使用配置值）")
	pendingTTL := flag.Duration("pending-ttl", 0, "待处理请求存活上限（0 表示不过期）")
	enableIntrospect := flag.Bool("introspect", false, "启用本地自省服务")
	introspectAddr := flag.String("introspect-addr", "", "自省服务地址（默认 127.0.0.1:6060）")
	logLevel := flag.String("log-level", "", "日志级别: debug/info/warn/error")
	logFormat := flag.String("log-format", "", "日志格式: text/json")
	flag.Parse()

	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║            PeerProxy Relay Daemon                    ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获中断信号
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		fmt.Printf("\n收到信号 %v，正在关闭...\n", sig)
		cancel()
	}()

	// 组装启动选项
	var opts []peerproxy.Option
	if *configFile != "" {
		opts = append(opts, peerproxy.WithConfigFile(*configFile))
	}
	if *addr != "" {
		opts = append(opts, peerproxy.WithListenAddr(*addr))
	}
	if *selector != "" {
		opts = append(opts, peerproxy.WithSelector(*selector))
	}
	if *keepAlive > 0 {
		opts = append(opts, peerproxy.WithKeepAlive(true, *keepAlive))
	}
	if *pendingTTL > 0 {
		opts = append(opts, peerproxy.WithPendingTTL(*pendingTTL))
	}
	if *enableIntrospect || *introspectAddr != "" {
		opts = append(opts, peerproxy.WithIntrospect(true, *introspectAddr))
	}
	if *logLevel != "" {
		opts = append(opts, peerproxy.WithLogLevel(*logLevel))
	}
	if *logFormat != "" {
		opts = append(opts, peerproxy.WithLogFormat(*logFormat))
	}

	// 创建并启动中继
	node, err := peerproxy.New(opts...)
	if err != nil {
		return fmt.Errorf("创建中继失败: %w", err)
	}
	if err := node.Start(ctx); err != nil {
		return fmt.Errorf("启动中继失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	// 打印服务器信息
	printServerInfo(node)

	// 启动统计报告
	go reportStats(ctx, node)

	// 等待关闭
	<-ctx.Done()

	fmt.Println("\n正在关闭中继...")
	fmt.Println("再见! 👋")
	return nil
}

// printServerInfo 打印服务器信息
func printServerInfo(node *peerproxy.Node) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║                    服务器信息                         ║")
	fmt.Println("╠══════════════════════════════════════════════════════╣")
	fmt.Printf("║ 版本: %s\n", peerproxy.Version)
	fmt.Printf("║ 监听地址: %s\n", node.Addr())
	fmt.Printf("║ 选择策略: %s\n", node.Config().Relay.Selector)
	if introspectAddr := node.IntrospectAddr(); introspectAddr != "" {
		fmt.Printf("║ 自省服务: http://%s/debug/introspect\n", introspectAddr)
	}
	fmt.Println("╚══════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("对端接入: ws://%s/ws/{peer_id}\n", node.Addr())
	fmt.Printf("提交请求: POST http://%s/request\n", node.Addr())
	fmt.Println()

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("中继已启动，等待对端接入...")
	fmt.Println("按 Ctrl+C 停止服务器")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// reportStats 定期报告统计信息
func reportStats(ctx context.Context, node *peerproxy.Node) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Printf("[Stats] 在线对端: %d, 会话: %d, 待处理请求: %d\n",
				node.PeerCount(), node.SessionCount(), node.PendingCount())
		}
	}
}
