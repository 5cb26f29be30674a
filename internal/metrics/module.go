package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module 指标模块
//
// 提供独立的 Prometheus Registry（附带 Go 运行时与进程采集器）
// 以及中继核心指标集合。Registry 同时以 Gatherer 形式导出，
// 供自省服务的 /metrics 端点使用。
var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		func(r *prometheus.Registry) prometheus.Registerer { return r },
		func(r *prometheus.Registry) prometheus.Gatherer { return r },
		func(r prometheus.Registerer) *Metrics { return New(r) },
	),
)

// NewRegistry 创建带运行时采集器的 Registry
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
