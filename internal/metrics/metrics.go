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
// 認証サービスやHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoginOutcome(outcome string)
	RecordLoginFailure(reason string)
	RecordUsernameDraws(draws int)
	RecordCallbackLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginOutcome    *prometheus.CounterVec
	loginFailure    *prometheus.CounterVec
	usernameDraws   prometheus.Histogram
	callbackLatency prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_login_success_total",
			Help: "解決結果別のログイン成功数",
		}, []string{"outcome"}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_login_failure_total",
			Help: "失敗分類別のログイン失敗数",
		}, []string{"reason"}),
		usernameDraws: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "threads_username_draws",
			Help:    "ユーザー名割り当て1回あたりの乱数サフィックス試行回数",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 60},
		}),
		callbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "threads_callback_latency_seconds",
			Help:    "OAuthコールバック処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginOutcome,
		c.loginFailure,
		c.usernameDraws,
		c.callbackLatency,
		c.httpStatus,
	)

	return c
}

// RecordLoginOutcome はログイン成功を解決結果別に記録する。
func (c *Collector) RecordLoginOutcome(outcome string) {
	c.loginOutcome.WithLabelValues(outcome).Inc()
}

// RecordLoginFailure はログイン失敗を失敗分類別に記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailure.WithLabelValues(reason).Inc()
}

// RecordUsernameDraws はユーザー名割り当ての試行回数を記録する。
func (c *Collector) RecordUsernameDraws(draws int) {
	c.usernameDraws.Observe(float64(draws))
}

// RecordCallbackLatency はコールバック処理のレイテンシを記録する。
func (c *Collector) RecordCallbackLatency(duration time.Duration) {
	c.callbackLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// スクレイプ自体の回数もregに記録する。一部のコレクターが失敗しても残りは返す。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを使わないテストやCLIサブコマンドで利用する。
type NopCollector struct{}

func (NopCollector) RecordLoginOutcome(string) {}
func (NopCollector) RecordLoginFailure(string) {}
func (NopCollector) RecordUsernameDraws(int) {}
func (NopCollector) RecordCallbackLatency(time.Duration) {}
func (NopCollector) RecordHTTPStatus(int) {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
