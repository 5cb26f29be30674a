package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSession_Send 发送编码后的消息
func TestSession_Send(t *testing.T) {
	conn := newFakeConn()
	s := NewSession("alice", conn, time.Second)

	require.NoError(t, s.Send(&Message{Type: TypePong, RequestID: "hb-1"}))

	msg := decodeWrite(t, conn.lastWrite())
	assert.Equal(t, TypePong, msg.Type)
	assert.Equal(t, "hb-1", msg.RequestID)
}

// TestSession_SendAfterClose 关闭后发送返回 ErrSessionClosed
func TestSession_SendAfterClose(t *testing.T) {
	conn := newFakeConn()
	s := NewSession("alice", conn, time.Second)

	s.Close()
	assert.ErrorIs(t, s.SendRaw([]byte("x")), ErrSessionClosed)
	assert.ErrorIs(t, s.Send(&Message{Type: TypePong}), ErrSessionClosed)
	assert.Equal(t, 0, conn.writeCount())
}

// TestSession_CloseIdempotent 多次关闭安全
func TestSession_CloseIdempotent(t *testing.T) {
	conn := newFakeConn()
	s := NewSession("alice", conn, time.Second)

	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("Done 应已关闭")
	}
	assert.True(t, conn.closed)
}

// TestSession_Identity 身份与唯一 ID
func TestSession_Identity(t *testing.T) {
	s1 := NewSession("alice", newFakeConn(), time.Second)
	s2 := NewSession("alice", newFakeConn(), time.Second)

	assert.Equal(t, "alice", s1.Identity())
	assert.NotEmpty(t, s1.ID())
	assert.NotEqual(t, s1.ID(), s2.ID())
}

// TestSession_Ping 控制帧探测
func TestSession_Ping(t *testing.T) {
	conn := newFakeConn()
	s := NewSession("alice", conn, time.Second)

	require.NoError(t, s.Ping())
	assert.Equal(t, 1, conn.pingCount())

	s.Close()
	assert.ErrorIs(t, s.Ping(), ErrSessionClosed)
}
