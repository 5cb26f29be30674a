// Package metrics 提供中继核心的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 请求处理结果标签值
const (
	// OutcomeForwarded 请求已转发给执行者
	OutcomeForwarded = "forwarded"

	// OutcomeInvalidURL URL 校验失败
	OutcomeInvalidURL = "invalid_url"

	// OutcomeNoExecutor 找不到可用执行者
	OutcomeNoExecutor = "no_executor"

	// OutcomeUnknownTarget 显式指定的执行者不在线
	OutcomeUnknownTarget = "unknown_target"
)

// Metrics 中继核心指标集合
//
// 所有指标注册在调用方提供的 Registerer 上，
// 测试中可以传入独立的 Registry 避免重复注册冲突。
type Metrics struct {
	// ConnectedPeers 当前已注册的身份数
	ConnectedPeers prometheus.Gauge

	// OpenSessions 当前打开的会话数（一个身份可能有多条会话）
	OpenSessions prometheus.Gauge

	// PendingRequests 待处理请求表当前条目数
	PendingRequests prometheus.Gauge

	// RequestsTotal 按处理结果统计的入站 request 总数
	RequestsTotal *prometheus.CounterVec

	// ForwardedTotal 按消息类型统计的转发总数
	ForwardedTotal *prometheus.CounterVec

	// DroppedStale 因关联 ID 未知而被丢弃的消息总数
	DroppedStale prometheus.Counter

	// SendFailures 扇出时发送失败（并触发剪除）的次数
	SendFailures prometheus.Counter
}

// New 创建并注册指标集合
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "connected_peers",
			Help:      "Number of peer identities currently registered",
		}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "open_sessions",
			Help:      "Number of open WebSocket sessions",
		}),
		PendingRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "pending_requests",
			Help:      "Number of entries in the pending request table",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Total number of inbound relay requests by outcome",
		}, []string{"outcome"}),
		ForwardedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "forwarded_total",
			Help:      "Total number of messages fanned out by type",
		}, []string{"type"}),
		DroppedStale: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "dropped_stale_total",
			Help:      "Total number of messages dropped due to unknown correlation id",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerproxy",
			Subsystem: "relay",
			Name:      "send_failures_total",
			Help:      "Total number of per-session send failures during fan-out",
		}),
	}
}
