package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn 会话底层连接
//
// *websocket.Conn 直接满足该接口；测试中使用假实现。
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session 一条活跃的双工连接
//
// 一个会话固定属于一个身份；同一身份可以同时拥有多条会话
// （多个标签页/进程共享身份）。会话在断开或不可恢复的发送
// 失败时销毁，销毁不影响同身份的其他会话。
type Session struct {
	id       string
	identity string
	conn     Conn

	// writeMu 串行化本会话的出站数据帧
	// WriteControl 可以与 WriteMessage 并发，无需加锁
	writeMu      sync.Mutex
	writeTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession 创建会话
func NewSession(identity string, conn Conn, writeTimeout time.Duration) *Session {
	return &Session{
		id:           uuid.New().String(),
		identity:     identity,
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// ID 返回会话唯一标识
func (s *Session) ID() string {
	return s.id
}

// Identity 返回会话所属的对端身份
func (s *Session) Identity() string {
	return s.identity
}

// Send 编码并发送一条协议消息
func (s *Session) Send(m *Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return s.SendRaw(data)
}

// SendRaw 发送原始 JSON 负载
//
// 转发 response/stream_chunk/error 时使用原始字节，
// 保证对端收到与执行者发出的完全一致的消息。
func (s *Session) SendRaw(data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping 发送协议层探活帧
//
// 建议性探测：不要求应答，失败只记录，由读循环感知真正的断开。
func (s *Session) Ping() error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	deadline := time.Now().Add(s.writeTimeout)
	if s.writeTimeout <= 0 {
		deadline = time.Now().Add(10 * time.Second)
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close 关闭会话
//
// 幂等；关闭后 Done 通道被触发，保活循环随之退出。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Done 返回会话终止信号通道
func (s *Session) Done() <-chan struct{} {
	return s.done
}
