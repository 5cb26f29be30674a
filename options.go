package peerproxy

import (
	"fmt"
	"time"

	"github.com/dep2p/go-peerproxy/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig / WithConfigFile）
	config *config.Config

	// 监听地址
	listenAddr string

	// 选择策略名称
	selector string

	// 保活配置
	keepAlive struct {
		enable   *bool
		interval *time.Duration
	}

	// 待处理请求 TTL
	pendingTTL *time.Duration

	// 自省服务配置
	introspect struct {
		enable *bool
		addr   string
	}

	// 日志配置
	logLevel  string
	logFormat string
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{}
}

// toConfig 合成最终配置
//
// 基础配置（缺省为默认配置）在前，显式选项覆盖在后。
func (o *options) toConfig() (*config.Config, error) {
	cfg := o.config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	if o.listenAddr != "" {
		cfg.Server.ListenAddr = o.listenAddr
	}
	if o.selector != "" {
		cfg.Relay.Selector = o.selector
	}
	if o.keepAlive.enable != nil {
		cfg.KeepAlive.Enabled = *o.keepAlive.enable
	}
	if o.keepAlive.interval != nil {
		cfg.KeepAlive.Interval = config.Duration(*o.keepAlive.interval)
	}
	if o.pendingTTL != nil {
		cfg.Relay.PendingTTL = config.Duration(*o.pendingTTL)
	}
	if o.introspect.enable != nil {
		cfg.Debug.EnableIntrospect = *o.introspect.enable
	}
	if o.introspect.addr != "" {
		cfg.Debug.IntrospectAddr = o.introspect.addr
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithConfig 使用完整配置
//
// 之后的显式选项仍会覆盖其中的对应字段。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithListenAddr 设置对外监听地址，例如 ":8000"
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return fmt.Errorf("listen addr must not be empty")
		}
		o.listenAddr = addr
		return nil
	}
}

// WithSelector 设置执行者选择策略
//
// 可选值: "first_other"（默认）、"round_robin"、"random"。
func WithSelector(name string) Option {
	return func(o *options) error {
		o.selector = name
		return nil
	}
}

// WithKeepAlive 配置会话保活探测
func WithKeepAlive(enable bool, interval time.Duration) Option {
	return func(o *options) error {
		o.keepAlive.enable = &enable
		if interval > 0 {
			o.keepAlive.interval = &interval
		}
		return nil
	}
}

// WithPendingTTL 设置待处理请求的存活上限
//
// 0 表示不过期（历史兼容行为）。
func WithPendingTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl < 0 {
			return fmt.Errorf("pending ttl must not be negative")
		}
		o.pendingTTL = &ttl
		return nil
	}
}

// WithIntrospect 启用本地自省服务
//
// addr 为空时使用默认地址 127.0.0.1:6060。
func WithIntrospect(enable bool, addr string) Option {
	return func(o *options) error {
		o.introspect.enable = &enable
		o.introspect.addr = addr
		return nil
	}
}

// WithLogLevel 设置日志级别: debug/info/warn/error
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.logLevel = level
		return nil
	}
}

// WithLogFormat 设置日志格式: text/json
func WithLogFormat(format string) Option {
	return func(o *options) error {
		o.logFormat = format
		return nil
	}
}
