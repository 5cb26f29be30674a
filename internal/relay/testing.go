package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// errConnClosed 假连接已关闭
var errConnClosed = errors.New("fake conn closed")

// fakeConn 测试用的内存连接
//
// 读取从 inbound 通道取出脚本化消息，通道关闭后 ReadMessage
// 返回错误（模拟对端断开）；写入记录在 writes 中。
// 置位 failWrites 后所有写入失败，用于触发死会话剪除。
type fakeConn struct {
	mu         sync.Mutex
	writes     [][]byte
	pings      int
	closed     bool
	failWrites bool

	inbound chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

// push 投递一条脚本化的入站文本消息
func (c *fakeConn) push(data []byte) {
	c.inbound <- data
}

// disconnect 结束脚本，读循环随后收到错误退出
func (c *fakeConn) disconnect() {
	close(c.inbound)
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return 0, nil, errConnClosed
	}
	return websocket.TextMessage, data, nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errConnClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.writes = append(c.writes, buf)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errConnClosed
	}
	if messageType == websocket.PingMessage {
		c.pings++
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(_ time.Time) error {
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// setFailWrites 控制后续写入是否失败
func (c *fakeConn) setFailWrites(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrites = fail
}

// writeCount 返回已记录的数据帧数量
func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// lastWrite 返回最后一条数据帧的副本，没有则返回 nil
func (c *fakeConn) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	last := c.writes[len(c.writes)-1]
	buf := make([]byte, len(last))
	copy(buf, last)
	return buf
}

// allWrites 返回所有数据帧的副本
func (c *fakeConn) allWrites() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	for i, w := range c.writes {
		buf := make([]byte, len(w))
		copy(buf, w)
		out[i] = buf
	}
	return out
}

// pingCount 返回已发送的 ping 控制帧数量
func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}
