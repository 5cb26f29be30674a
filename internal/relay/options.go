package relay

import (
	"time"

	"github.com/dep2p/go-peerproxy/internal/metrics"
)

// Option 定义配置选项函数
type Option func(*Config)

// Config 路由核心配置
type Config struct {
	// Selector 执行者选择策略；nil 时使用 first_other
	Selector Selector

	// KeepAliveEnabled 是否启用会话保活探测
	KeepAliveEnabled bool

	// KeepAliveInterval 保活探测间隔
	KeepAliveInterval time.Duration

	// WriteTimeout 单次出站发送超时
	WriteTimeout time.Duration

	// PendingTTL 待处理请求存活时间；0 表示永不过期
	PendingTTL time.Duration

	// SweepInterval TTL 清扫间隔；仅在 PendingTTL > 0 时生效
	SweepInterval time.Duration

	// Metrics 指标集合；nil 时在独立 Registry 上创建
	Metrics *metrics.Metrics
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		KeepAliveEnabled:  true,
		KeepAliveInterval: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
		PendingTTL:        0,
		SweepInterval:     time.Minute,
	}
}

// WithSelector 设置执行者选择策略
func WithSelector(s Selector) Option {
	return func(c *Config) {
		c.Selector = s
	}
}

// WithKeepAlive 设置保活探测
func WithKeepAlive(enabled bool, interval time.Duration) Option {
	return func(c *Config) {
		c.KeepAliveEnabled = enabled
		if interval > 0 {
			c.KeepAliveInterval = interval
		}
	}
}

// WithWriteTimeout 设置出站发送超时
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = timeout
	}
}

// WithPendingTTL 启用待处理请求的 TTL 清扫
//
// ttl 为 0 时保持历史行为：条目只在对端断开时清理。
func WithPendingTTL(ttl, sweepInterval time.Duration) Option {
	return func(c *Config) {
		c.PendingTTL = ttl
		if sweepInterval > 0 {
			c.SweepInterval = sweepInterval
		}
	}
}

// WithMetrics 设置指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
