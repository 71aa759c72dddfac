package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/domain/knowledge"
)

// StatsSource yields a snapshot of cache lookup counters.
type StatsSource interface {
	Stats() knowledge.CacheStats
}

// StatsCollector reads the cache counters at scrape time, so Prometheus and
// the stats endpoint always report from the same source.
type StatsCollector struct {
	source  StatsSource
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	hitRate *prometheus.Desc
}

func NewStatsCollector(source StatsSource) *StatsCollector {
	return &StatsCollector{
		source: source,
		hits: prometheus.NewDesc(
			"angel_eye_cache_hits_total",
			"The total number of knowledge cache hits",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			"angel_eye_cache_misses_total",
			"The total number of knowledge cache misses",
			nil, nil,
		),
		hitRate: prometheus.NewDesc(
			"angel_eye_cache_hit_rate",
			"The fraction of answered lookups served from cache",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRate
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, stats.HitRate)
}

var _ prometheus.Collector = (*StatsCollector)(nil)
