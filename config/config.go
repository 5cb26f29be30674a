// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（server/minimal）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Server.ListenAddr = ":9000"
//
//	// 使用预设配置
//	cfg := config.NewServerConfig()
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 PeerProxy 中继的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口。
// 配置按照功能模块组织：
//   - Server: 对外 HTTP/WebSocket 服务
//   - Relay: 请求路由核心（执行者选择、待处理表）
//   - KeepAlive: 会话保活探测
//   - Debug: 本地自省/诊断服务
//   - Log: 日志输出
type Config struct {
	// Server 对外服务配置
	Server ServerConfig `json:"server"`

	// Relay 路由核心配置
	Relay RelayConfig `json:"relay"`

	// KeepAlive 保活配置
	KeepAlive KeepAliveConfig `json:"keep_alive"`

	// Debug 诊断服务配置
	Debug DebugConfig `json:"debug"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Relay:     DefaultRelayConfig(),
		KeepAlive: DefaultKeepAliveConfig(),
		Debug:     DefaultDebugConfig(),
		Log:       DefaultLogConfig(),
	}
}

// NewServerConfig 创建服务器预设配置
//
// 与默认配置的区别：启用自省服务，放宽单条消息大小限制。
// 适合长期运行的公网中继部署。
func NewServerConfig() *Config {
	cfg := NewConfig()
	cfg.Debug.EnableIntrospect = true
	cfg.Server.MaxMessageSize = 100 << 20 // 100 MB，匹配大流媒体分片
	return cfg
}

// FromJSON 从 JSON 数据解析配置
//
// 解析前先填充默认值，JSON 中省略的字段保持默认。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载 JSON 配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置为 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
