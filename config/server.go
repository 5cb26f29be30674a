package config

import "time"

// ServerConfig 对外服务配置
//
// 对外服务承载两类端点：
//   - WebSocket 接入点 /ws/:peer_id（每个身份一条或多条持久连接）
//   - 控制面 HTTP 端点（欢迎页、/peers、/request）
type ServerConfig struct {
	// ListenAddr 监听地址，例如 ":8000" 或 "127.0.0.1:8000"
	ListenAddr string `json:"listen_addr"`

	// ReadBufferSize WebSocket 读缓冲区大小（字节）
	ReadBufferSize int `json:"read_buffer_size"`

	// WriteBufferSize WebSocket 写缓冲区大小（字节）
	WriteBufferSize int `json:"write_buffer_size"`

	// MaxMessageSize 单条入站消息大小上限（字节）
	// 0 表示不限制
	MaxMessageSize int64 `json:"max_message_size"`

	// WriteTimeout 单次出站发送超时
	// 超时视为该会话的不可恢复发送失败
	WriteTimeout Duration `json:"write_timeout"`
}

// DefaultServerConfig 返回默认对外服务配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ":8000",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  0, // 不限制，流式分片可能很大
		WriteTimeout:    Duration(10 * time.Second),
	}
}
