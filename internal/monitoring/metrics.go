package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/John-Robertt/imdbtop/internal/app/run"
	"github.com/John-Robertt/imdbtop/internal/domain"
)

const namespace = "imdbtop"

// Metrics 汇总进程内的 Prometheus 指标。
//
// 它同时实现 run.Observer，可以直接挂到抓取流程上。
type Metrics struct {
	ScrapesTotal   *prometheus.CounterVec
	PagesTotal     *prometheus.CounterVec
	RecordsTotal   *prometheus.CounterVec
	PageDuration   prometheus.Histogram
	RequestsServed *prometheus.CounterVec
}

// NewMetrics 把指标注册到 reg；reg 为 nil 时使用默认 registry。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ScrapesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "The total number of scrape requests, by cache result",
		}, []string{"cache"}), // hit, miss
		PagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "The total number of list pages fetched, by status",
		}, []string{"status", "error_code"}),
		RecordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "The total number of movie records, before and after dedupe",
		}, []string{"stage"}), // extracted, unique
		PageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent fetching and parsing one list page",
			Buckets:   prometheus.DefBuckets,
		}),
		RequestsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of web UI requests, by route and status",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncScrape(cached bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cached {
		label = "hit"
	}
	m.ScrapesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncRequest(route string, status int) {
	if m == nil {
		return
	}
	m.RequestsServed.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) OnStart(run.Request) {}

func (m *Metrics) OnPageDone(_, _ int, res domain.PageResult, dur time.Duration) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(res.Status, res.ErrorCode).Inc()
	m.PageDuration.Observe(dur.Seconds())
}

func (m *Metrics) OnPhaseDone(name string, fields map[string]any, _ time.Duration) {
	if m == nil || name != "dedupe" {
		return
	}
	for _, stage := range []string{"extracted", "unique"} {
		if n, ok := fields[stage].(int); ok {
			m.RecordsTotal.WithLabelValues(stage).Add(float64(n))
		}
	}
}

var _ run.Observer = (*Metrics)(nil)
