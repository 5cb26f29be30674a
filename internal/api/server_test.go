package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerproxy/config"
	"github.com/dep2p/go-peerproxy/internal/relay"
)

func newTestServer(t *testing.T) (*Server, *relay.Router) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"

	router, err := relay.New(relay.WithKeepAlive(false, 0))
	require.NoError(t, err)
	require.NoError(t, router.Start(context.Background()))

	server := NewServer(cfg, router)
	require.NoError(t, server.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Stop(ctx)
		_ = router.Stop(context.Background())
	})
	return server, router
}

// dialPeer 以指定身份建立 WebSocket 连接并等待注册
func dialPeer(t *testing.T, server *Server, router *relay.Router, identity string) *websocket.Conn {
	t.Helper()
	before := router.SessionCount()

	url := fmt.Sprintf("ws://%s/ws/%s", server.Addr(), identity)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return router.SessionCount() == before+1
	}, time.Second, 5*time.Millisecond)
	return conn
}

// readJSON 带超时读取一条 WebSocket 消息
func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// TestServer_RootEndpoint 根端点返回欢迎 JSON
func TestServer_RootEndpoint(t *testing.T) {
	server, router := newTestServer(t)
	dialPeer(t, server, router, "alice")

	status, body := getJSON(t, "http://"+server.Addr()+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(1), body["active_peers"])
}

// TestServer_WelcomePage 欢迎页返回 HTML
func TestServer_WelcomePage(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get("http://" + server.Addr() + "/welcome")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "PeerProxy Relay")
}

// TestServer_PeersEndpoint 在线对端列表
func TestServer_PeersEndpoint(t *testing.T) {
	server, router := newTestServer(t)

	status, body := getJSON(t, "http://"+server.Addr()+"/peers")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	dialPeer(t, server, router, "alice")
	dialPeer(t, server, router, "bob")

	_, body = getJSON(t, "http://"+server.Addr()+"/peers")
	assert.Equal(t, float64(2), body["count"])
	assert.ElementsMatch(t, []any{"alice", "bob"}, body["peers"])
}

// TestServer_WebSocketRoundTrip 通过真实 WebSocket 的完整往返
func TestServer_WebSocketRoundTrip(t *testing.T) {
	server, router := newTestServer(t)

	alice := dialPeer(t, server, router, "alice")
	bob := dialPeer(t, server, router, "bob")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"request","url":"http://example.com"}`)))

	fetch := readJSON(t, bob)
	assert.Equal(t, "fetch", fetch["type"])
	assert.Equal(t, "alice_http://example.com", fetch["request_id"])
	assert.Equal(t, "http://example.com", fetch["url"])
	assert.Equal(t, "alice", fetch["from"])

	require.NoError(t, bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"response","request_id":"alice_http://example.com","body":"<html></html>"}`)))

	reply := readJSON(t, alice)
	assert.Equal(t, "response", reply["type"])
	assert.Equal(t, "<html></html>", reply["body"])
}

// TestServer_WebSocketDisconnect 断开后对端从列表消失
func TestServer_WebSocketDisconnect(t *testing.T) {
	server, router := newTestServer(t)

	alice := dialPeer(t, server, router, "alice")
	require.Equal(t, 1, router.PeerCount())

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		return router.PeerCount() == 0
	}, time.Second, 5*time.Millisecond)
}

// TestServer_SubmitEndpoint 控制面提交与错误映射
func TestServer_SubmitEndpoint(t *testing.T) {
	server, router := newTestServer(t)

	alice := dialPeer(t, server, router, "alice")
	bob := dialPeer(t, server, router, "bob")

	post := func(payload string) (int, map[string]any) {
		resp, err := http.Post("http://"+server.Addr()+"/request",
			"application/json", bytes.NewBufferString(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	// 成功路径
	status, body := post(`{"peer_id":"alice","url":"http://example.com/data"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "alice_http://example.com/data", body["request_id"])

	fetch := readJSON(t, bob)
	assert.Equal(t, "fetch", fetch["type"])

	// 缺少必填字段
	status, _ = post(`{"peer_id":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// 非法 URL
	status, body = post(`{"peer_id":"alice","url":"ftp://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid url", body["error"])

	// 未连接对端
	status, body = post(`{"peer_id":"ghost","url":"http://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "peer not connected", body["error"])

	// 响应仍通过请求者的 WebSocket 送达
	require.NoError(t, bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"response","request_id":"alice_http://example.com/data","body":"ok"}`)))
	reply := readJSON(t, alice)
	assert.Equal(t, "response", reply["type"])
}

// TestServer_SubmitNoExecutor 只有请求者自己时返回 503
func TestServer_SubmitNoExecutor(t *testing.T) {
	server, router := newTestServer(t)
	dialPeer(t, server, router, "alice")

	resp, err := http.Post("http://"+server.Addr()+"/request",
		"application/json",
		strings.NewReader(`{"peer_id":"alice","url":"http://example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// TestServer_StartStop 生命周期防护
func TestServer_StartStop(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	router, err := relay.New()
	require.NoError(t, err)
	require.NoError(t, router.Start(context.Background()))
	defer router.Stop(context.Background())

	server := NewServer(cfg, router)
	assert.ErrorIs(t, server.Stop(context.Background()), ErrNotStarted)

	require.NoError(t, server.Start(context.Background()))
	assert.ErrorIs(t, server.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, server.Stop(context.Background()))
}
