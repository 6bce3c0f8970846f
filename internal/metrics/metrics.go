// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リポジトリ・コーディネーター・画像パイプラインから利用する。
type MetricsCollector interface {
	RecordListSource(source string)
	RecordListLatency(duration time.Duration)
	RecordNoData()
	RecordSignup(result string)
	RecordUpload(result string)
	RecordUploadLatency(duration time.Duration)
}

// メトリクスのラベル値。
const (
	// SourceNetwork はネットワーク経由で一覧を取得したことを表す。
	SourceNetwork = "network"
	// SourceCache はキャッシュへフォールバックしたことを表す。
	SourceCache = "cache"

	// ResultSuccess は操作成功を表す。
	ResultSuccess = "success"
	// ResultFailure は操作失敗を表す。
	ResultFailure = "failure"
	// ResultNoop は前提条件により何も行わなかったことを表す。
	ResultNoop = "noop"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	listSource    *prometheus.CounterVec
	listLatency   prometheus.Histogram
	noData        prometheus.Counter
	signup        *prometheus.CounterVec
	upload        *prometheus.CounterVec
	uploadLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		listSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_event_list_total",
			Help: "イベント一覧取得の合計数（取得元別）",
		}, []string{"source"}),
		listLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsudoi_event_list_latency_seconds",
			Help:    "イベント一覧取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		noData: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsudoi_event_list_no_data_total",
			Help: "ネットワーク・キャッシュ双方から取得できなかった回数",
		}),
		signup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_signup_total",
			Help: "ボランティア登録の合計数（結果別）",
		}, []string{"result"}),
		upload: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_image_upload_total",
			Help: "画像アップロードの合計数（結果別）",
		}, []string{"result"}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsudoi_image_upload_latency_seconds",
			Help:    "画像アップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.listSource,
		c.listLatency,
		c.noData,
		c.signup,
		c.upload,
		c.uploadLatency,
	)

	return c
}

// RecordListSource は一覧取得の取得元（network/cache）を記録する。
func (c *Collector) RecordListSource(source string) {
	c.listSource.WithLabelValues(source).Inc()
}

// RecordListLatency は一覧取得のレイテンシを記録する。
func (c *Collector) RecordListLatency(duration time.Duration) {
	c.listLatency.Observe(duration.Seconds())
}

// RecordNoData はデータ未取得（終端状態）を記録する。
func (c *Collector) RecordNoData() {
	c.noData.Inc()
}

// RecordSignup はボランティア登録の結果を記録する。
func (c *Collector) RecordSignup(result string) {
	c.signup.WithLabelValues(result).Inc()
}

// RecordUpload は画像アップロードの結果を記録する。
func (c *Collector) RecordUpload(result string) {
	c.upload.WithLabelValues(result).Inc()
}

// RecordUploadLatency は画像アップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// 開発ビルドでのみ公開されることを想定している。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
