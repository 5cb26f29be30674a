package config

// DebugConfig 诊断服务配置
//
// 诊断服务监听独立的本地端口，提供健康检查、
// 运行时自省、Prometheus 指标和 pprof 端点。
type DebugConfig struct {
	// EnableIntrospect 是否启用本地自省服务
	EnableIntrospect bool `json:"enable_introspect"`

	// IntrospectAddr 自省服务监听地址
	IntrospectAddr string `json:"introspect_addr"`
}

// DefaultDebugConfig 返回默认诊断配置
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		EnableIntrospect: false,
		IntrospectAddr:   "127.0.0.1:6060",
	}
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别: "debug"/"info"/"warn"/"error"
	Level string `json:"level"`

	// Format 输出格式: "text" 或 "json"
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}
