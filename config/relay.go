package config

// 执行者选择策略名称
const (
	// SelectorFirstOther 注册顺序中第一个非请求者身份（默认，与历史行为兼容）
	SelectorFirstOther = "first_other"

	// SelectorRoundRobin 在候选身份上轮转
	SelectorRoundRobin = "round_robin"

	// SelectorRandom 随机挑选候选身份
	SelectorRandom = "random"
)

// RelayConfig 路由核心配置
type RelayConfig struct {
	// Selector 执行者选择策略
	// 可选值: "first_other"（默认）、"round_robin"、"random"
	Selector string `json:"selector"`

	// PendingTTL 待处理请求的存活时间
	// 0 表示永不过期（与历史行为兼容：条目只在对端断开时清理）。
	// 设置为正值时启用后台清扫，超龄条目被移除。
	PendingTTL Duration `json:"pending_ttl"`

	// SweepInterval 后台清扫间隔
	// 仅在 PendingTTL > 0 时生效
	SweepInterval Duration `json:"sweep_interval"`
}

// DefaultRelayConfig 返回默认路由核心配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Selector:      SelectorFirstOther,
		PendingTTL:    0, // 默认不过期
		SweepInterval: 0, // 启用 TTL 时由 relay 包取默认值
	}
}
