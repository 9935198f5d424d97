package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersPlaced        prometheus.Counter
	ordersExecuted      prometheus.Counter
	ordersCancelled     prometheus.Counter
	transitionConflicts prometheus.Counter
	ordersPending       prometheus.Gauge

	// 通知指标
	subscribers         prometheus.Gauge
	eventsBroadcast     prometheus.Counter
	subscriberEvictions prometheus.Counter
	wsConnections       prometheus.Counter
	wsDisconnects       prometheus.Counter

	// HTTP指标
	restRequests *prometheus.CounterVec
	restErrors   *prometheus.CounterVec
	restLatency  *prometheus.HistogramVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "tradesim",
		Subsystem: "orders",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,

		ordersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "placed_total",
			Help:      "订单提交总数",
		}),
		ordersExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "executed_total",
			Help:      "订单成交总数",
		}),
		ordersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cancelled_total",
			Help:      "订单撤单总数",
		}),
		transitionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "transition_conflicts_total",
			Help:      "状态转换竞争失败总数",
		}),
		ordersPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pending",
			Help:      "当前待执行订单数",
		}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "当前订阅连接数",
		}),
		eventsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hub",
			Name:      "events_broadcast_total",
			Help:      "广播事件总数",
		}),
		subscriberEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hub",
			Name:      "subscriber_evictions_total",
			Help:      "慢订阅者被剔除总数",
		}),
		wsConnections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "ws",
			Name:      "connections_total",
			Help:      "WebSocket连接次数",
		}),
		wsDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "ws",
			Name:      "disconnects_total",
			Help:      "WebSocket断开次数",
		}),

		restRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rest",
				Name:      "requests_total",
				Help:      "REST请求总数",
			},
			[]string{"action"},
		),
		restErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rest",
				Name:      "errors_total",
				Help:      "REST错误总数",
			},
			[]string{"action"},
		),
		restLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rest",
				Name:      "latency_seconds",
				Help:      "REST请求延迟（秒）",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}

	return m
}

// 订单相关方法
func (m *Monitor) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
	m.ordersPending.Inc()
}

func (m *Monitor) RecordOrderExecuted() {
	m.ordersExecuted.Inc()
	m.ordersPending.Dec()
}

func (m *Monitor) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
	m.ordersPending.Dec()
}

func (m *Monitor) RecordTransitionConflict() {
	m.transitionConflicts.Inc()
}

// 通知相关方法
func (m *Monitor) SetSubscribers(n int) {
	m.subscribers.Set(float64(n))
}

func (m *Monitor) RecordEventBroadcast() {
	m.eventsBroadcast.Inc()
}

func (m *Monitor) RecordSubscriberEviction() {
	m.subscriberEvictions.Inc()
}

func (m *Monitor) RecordWSConnection() {
	m.wsConnections.Inc()
}

func (m *Monitor) RecordWSDisconnect() {
	m.wsDisconnects.Inc()
}

// HTTP相关方法
func (m *Monitor) RecordRESTRequest(action string) {
	m.restRequests.WithLabelValues(action).Inc()
}

func (m *Monitor) RecordRESTError(action string) {
	m.restErrors.WithLabelValues(action).Inc()
}

func (m *Monitor) RecordRESTLatency(action string, seconds float64) {
	m.restLatency.WithLabelValues(action).Observe(seconds)
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
