package config

import "time"

// KeepAliveConfig 会话保活配置
//
// 保活探测是建议性的：探测帧按固定间隔发送，
// 未收到 pong 不会导致会话被驱逐。
type KeepAliveConfig struct {
	// Enabled 是否启用保活探测
	Enabled bool `json:"enabled"`

	// Interval 探测间隔
	Interval Duration `json:"interval"`
}

// DefaultKeepAliveConfig 返回默认保活配置
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		Enabled:  true,
		Interval: Duration(30 * time.Second),
	}
}
