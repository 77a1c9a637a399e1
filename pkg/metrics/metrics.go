// Package metrics 提供 Prometheus helper，包含交易所各服务常用的 counter/gauge/histogram
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// 撮合引擎处理的命令计数
	CommandsTotal *prometheus.CounterVec
	// 命令处理耗时
	CommandDuration prometheus.Histogram
	// 成交计数
	TradesTotal prometheus.Counter
	// 当前挂单数
	OrdersResting prometheus.Gauge
	// 快照写入耗时
	SnapshotDuration prometheus.Histogram
	// 快照写入失败计数
	SnapshotFailures prometheus.Counter
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram
	// 持久化事件计数
	DBEventsTotal *prometheus.CounterVec
	// 行情推送计数
	MarketUpdatesTotal prometheus.Counter
	// 当前 websocket 连接数
	WSConnections prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "commands_total",
			Help:      "Total engine commands processed, by type and outcome",
		}, []string{"type", "outcome"}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "command_duration_seconds",
			Help:      "Command processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Total trades executed",
		}),
		OrdersResting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "orders_resting",
			Help:      "Orders currently resting in the books",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "snapshot_duration_seconds",
			Help:      "Snapshot persistence duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "snapshot_failures_total",
			Help:      "Total snapshot persistence failures",
		}),
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "db_events_total",
			Help:      "Total persistence events, by type",
		}, []string{"type"}),
		MarketUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "market_updates_total",
			Help:      "Total market data updates published",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exchange",
			Subsystem: serviceName,
			Name:      "ws_connections",
			Help:      "Active websocket connections",
		}),
	}
}

// Register 注册所有指标到默认注册表
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.CommandsTotal,
		m.CommandDuration,
		m.TradesTotal,
		m.OrdersResting,
		m.SnapshotDuration,
		m.SnapshotFailures,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBEventsTotal,
		m.MarketUpdatesTotal,
		m.WSConnections,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus 指标 HTTP 服务
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()

	return nil
}
