package relay

import (
	"encoding/json"
	"regexp"
	"unicode/utf8"
)

// 消息类型
const (
	// TypeRequest 对端发起的代理抓取请求
	TypeRequest = "request"

	// TypeFetch 中继指示执行者抓取
	TypeFetch = "fetch"

	// TypeResponse 执行者返回的终态结果
	TypeResponse = "response"

	// TypeStreamChunk 执行者返回的流式分片
	TypeStreamChunk = "stream_chunk"

	// TypeError 应用级错误
	TypeError = "error"

	// TypePing 应用级探活请求
	TypePing = "ping"

	// TypePong 应用级探活应答
	TypePong = "pong"
)

// 请求类型
const (
	// KindStatic 一次性抓取并返回
	KindStatic = "static"

	// KindStream 增量分片流
	KindStream = "stream"
)

// maxURLIDLen 关联 ID 派生时取 URL 的前多少个字符
const maxURLIDLen = 50

// Message 中继协议消息
//
// 所有字段按需填充；response/stream_chunk/error 的负载字段
// 不在此结构中逐一建模——转发时使用原始字节，保证逐字透传。
type Message struct {
	// Type 消息类型区分符
	Type string `json:"type"`

	// RequestID 关联 ID，绑定请求与其响应/分片/错误
	RequestID string `json:"request_id,omitempty"`

	// URL 待抓取的资源地址
	URL string `json:"url,omitempty"`

	// From 请求者身份；缺省为发送方会话的身份
	From string `json:"from,omitempty"`

	// Method HTTP 方法，缺省 GET
	Method string `json:"method,omitempty"`

	// Headers 随抓取透传的请求头
	Headers map[string]string `json:"headers,omitempty"`

	// Body 请求体，保持原始 JSON 形态透传
	Body json.RawMessage `json:"body,omitempty"`

	// RequestType 请求类型: "static" 或 "stream"
	RequestType string `json:"request_type,omitempty"`

	// TargetPeer 显式指定的执行者身份（可选）
	TargetPeer string `json:"target_peer_id,omitempty"`

	// Chunk 流式分片负载
	Chunk json.RawMessage `json:"chunk,omitempty"`

	// Text 错误消息文本
	Text string `json:"message,omitempty"`
}

// Encode 编码消息为 JSON
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage 解码 JSON 消息
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewErrorMessage 构造携带关联 ID 的错误消息
func NewErrorMessage(requestID, text string) *Message {
	return &Message{
		Type:      TypeError,
		RequestID: requestID,
		Text:      text,
	}
}

// urlPattern 基本的绝对 HTTP(S) URL 形态校验
var urlPattern = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// isValidURL 校验 URL 是否符合基本形态
func isValidURL(url string) bool {
	return urlPattern.MatchString(url)
}

// deriveRequestID 派生关联 ID
//
// 对端未显式提供 request_id 时，取 {请求者身份}_{URL 前 50 字符}。
// 按字符（rune）截断而非字节，避免多字节 URL 截出非法 UTF-8
// 导致关联 ID 在编码后与存表键不一致。
// 同一身份对同一 URL 前缀的并发请求会相互覆盖，这是协议
// 的既有语义，调用方如需隔离应自带 request_id。
func deriveRequestID(from, url string) string {
	if utf8.RuneCountInString(url) > maxURLIDLen {
		runes := []rune(url)
		url = string(runes[:maxURLIDLen])
	}
	return from + "_" + url
}
