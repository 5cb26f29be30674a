package config

import (
	"errors"
	"fmt"
)

// 配置校验错误
var (
	// ErrEmptyListenAddr 监听地址为空
	ErrEmptyListenAddr = errors.New("server.listen_addr must not be empty")

	// ErrUnknownSelector 未知的选择策略
	ErrUnknownSelector = errors.New("relay.selector must be one of first_other/round_robin/random")

	// ErrNegativeTTL TTL 为负
	ErrNegativeTTL = errors.New("relay.pending_ttl must not be negative")
)

// Validate 校验配置的完整性和一致性
//
// 在节点启动前调用，校验失败时拒绝启动。
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return ErrEmptyListenAddr
	}

	if c.Server.MaxMessageSize < 0 {
		return fmt.Errorf("server.max_message_size must not be negative: %d", c.Server.MaxMessageSize)
	}

	switch c.Relay.Selector {
	case "", SelectorFirstOther, SelectorRoundRobin, SelectorRandom:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownSelector, c.Relay.Selector)
	}

	if c.Relay.PendingTTL < 0 {
		return ErrNegativeTTL
	}

	if c.KeepAlive.Enabled && c.KeepAlive.Interval <= 0 {
		return fmt.Errorf("keep_alive.interval must be positive when enabled: %s", c.KeepAlive.Interval)
	}

	if c.Debug.EnableIntrospect && c.Debug.IntrospectAddr == "" {
		return errors.New("debug.introspect_addr must not be empty when introspect is enabled")
	}

	return nil
}
