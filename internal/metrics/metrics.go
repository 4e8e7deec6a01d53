// Package metrics 同步与排行榜的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option 指标管理器配置项
type Option func(*Manager)

// WithNamespace 指标命名空间
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry 使用自定义 registry（测试中每个用例独立）
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Manager 全部指标；方法对 nil 接收者安全，未注入时不记录
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	syncRuns        *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	rowsProcessed   *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	catalogInserted prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "progresssync"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	auto := promauto.With(m.registry)
	m.syncRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "同步运行次数（按操作与结果）",
	}, []string{"operation", "status"})
	m.syncDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "单次同步耗时",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"operation"})
	m.rowsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "enrollment",
		Name:      "rows_total",
		Help:      "报名表行处理结果",
	}, []string{"result"})
	m.eventsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "completion",
		Name:      "events_total",
		Help:      "AC 提交事件处理结果",
	}, []string{"result"})
	m.catalogInserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "catalog",
		Name:      "inserted_total",
		Help:      "从种子新增的题库条目数",
	})
	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "leaderboard",
		Name:      "cache_lookups_total",
		Help:      "排行榜缓存命中情况",
	}, []string{"result"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP 请求数",
	}, []string{"endpoint", "method", "status_code"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP 请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
	return m
}

// Registry 供 /metrics 与测试读取
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) ObserveSync(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(operation, status).Inc()
	m.syncDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Manager) IncRow(result string) {
	if m == nil {
		return
	}
	m.rowsProcessed.WithLabelValues(result).Inc()
}

func (m *Manager) IncEvent(result string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(result).Inc()
}

func (m *Manager) AddCatalogInserted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.catalogInserted.Add(float64(n))
}

func (m *Manager) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// GinMiddleware 记录请求数与耗时，endpoint 使用路由模板避免高基数
func (m *Manager) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.httpRequests.WithLabelValues(endpoint, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(endpoint, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
