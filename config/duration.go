// Package config 提供统一的配置管理
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 中继配置里的时间字段（写超时、保活间隔、待处理请求 TTL 等）
// 均使用此类型，配置文件可写成人类可读的字符串:
//
//	{"keepalive": {"interval": "30s"}}
//
// 也接受纳秒数字，兼容程序化生成的配置。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
//
// 字符串按 time.ParseDuration 解析，数字按纳秒处理。
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		duration, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(duration)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"30s\") or number (nanoseconds)")
}

// MarshalJSON 输出人类可读的字符串格式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
