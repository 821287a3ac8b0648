// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordGeneration(mode string, outcome string)
	RecordGenerationLatency(mode string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordQuotaRejection()
	RecordRateLimitRejection(namespace string)
	RecordWebhookEvent(eventType string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	quotaRejections   prometheus.Counter
	rateRejections    *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baya_generations_total",
			Help: "鑑定生成のモード別・結果別の合計数",
		}, []string{"mode", "outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "baya_generation_latency_seconds",
			Help: "鑑定生成のレイテンシ（秒）",
			// 生成は十秒単位でかかるため既定バケットより長めに取る
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"mode"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baya_free_cache_hits_total",
			Help: "無料レポートキャッシュ命中の合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baya_free_cache_misses_total",
			Help: "無料レポートキャッシュ未命中の合計数",
		}),
		quotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baya_quota_rejections_total",
			Help: "無料枠超過による拒否の合計数",
		}),
		rateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baya_rate_limit_rejections_total",
			Help: "レート制限による拒否の名前空間別合計数",
		}, []string{"namespace"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baya_webhook_events_total",
			Help: "受信したWebhookイベントの種別別合計数",
		}, []string{"event_type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baya_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.generations,
		c.generationLatency,
		c.cacheHits,
		c.cacheMisses,
		c.quotaRejections,
		c.rateRejections,
		c.webhookEvents,
		c.httpStatus,
	)

	return c
}

// RecordGeneration は鑑定生成の結果を記録する。outcomeはsuccess / error / timeout。
func (c *Collector) RecordGeneration(mode string, outcome string) {
	c.generations.WithLabelValues(mode, outcome).Inc()
}

// RecordGenerationLatency は鑑定生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(mode string, duration time.Duration) {
	c.generationLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordCacheHit は無料レポートキャッシュ命中を記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss は無料レポートキャッシュ未命中を記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordQuotaRejection は無料枠超過による拒否を記録する。
func (c *Collector) RecordQuotaRejection() {
	c.quotaRejections.Inc()
}

// RecordRateLimitRejection はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimitRejection(namespace string) {
	c.rateRejections.WithLabelValues(namespace).Inc()
}

// RecordWebhookEvent は受信したWebhookイベントを記録する。
func (c *Collector) RecordWebhookEvent(eventType string) {
	c.webhookEvents.WithLabelValues(eventType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
