package stats

import (
	"math"
	"strings"

	"github.com/grafana/decaystats/distribution"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exposes the registered metrics to prometheus.
// Distributions become summaries whose count and sum are the decayed values,
// decaying counters become a pair of gauges.
// Metrics without a prometheus rendering are skipped.
type PrometheusCollector struct {
	namespace string
	registry  *Registry
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		registry:  registry,
	}
}

// Describe sends no descriptors: the set of metrics grows at runtime,
// which makes this an unchecked collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
}

func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for name, metric := range c.registry.list() {
		fqName := c.fqName(name)
		switch m := metric.(type) {
		case *Distribution:
			s := m.Snapshot()
			quantiles := map[float64]float64{
				0.5: s.P50, 0.75: s.P75, 0.9: s.P90, 0.95: s.P95, 0.99: s.P99,
			}
			ch <- summary(fqName, "decayed distribution "+name, s.Count, s.Total, quantiles)
		case *TimeDistribution:
			ch <- timeSummary(fqName, "decayed latency distribution "+name, m.Snapshot())
		case *PauseMeter:
			ch <- timeSummary(fqName, "decayed scheduling pauses of "+name, m.dist.Snapshot())
		case *MemoryReporter:
			snap := m.StatsSnapshot().(MemorySnapshot)
			ch <- gauge(fqName+"_heap_bytes", "bytes allocated on the heap", float64(snap.HeapBytes))
			ch <- gauge(fqName+"_sys_bytes", "bytes obtained from the system", float64(snap.SysBytes))
			ch <- timeSummary(fqName+"_gc_pause", "decayed GC stop-the-world pauses", snap.GCPauses)
		case *DecayCounter:
			s := m.Snapshot()
			ch <- gauge(fqName+"_count", "decayed count of "+name, s.Count)
			ch <- gauge(fqName+"_rate", "decayed rate per second of "+name, s.Rate)
		case *CounterRate32:
			ch <- prometheus.MustNewConstMetric(
				prometheus.NewDesc(fqName+"_total", name, nil, nil),
				prometheus.CounterValue, float64(m.Peek()))
			ch <- gauge(fqName+"_rate", "decayed rate per second of "+name, m.Rate())
		case *Counter32:
			ch <- prometheus.MustNewConstMetric(
				prometheus.NewDesc(fqName+"_total", name, nil, nil),
				prometheus.CounterValue, float64(m.Peek()))
		case *Gauge32:
			ch <- gauge(fqName, name, float64(m.Peek()))
		case *Gauge64:
			ch <- gauge(fqName, name, float64(m.Peek()))
		case *Range32:
			if w, ok := m.Window(); ok {
				ch <- gauge(fqName+"_min", "min of "+name+" over the current or last interval", float64(w.Min))
				ch <- gauge(fqName+"_max", "max of "+name+" over the current or last interval", float64(w.Max))
			}
		case *Bool:
			var v float64
			if m.Peek() {
				v = 1
			}
			ch <- gauge(fqName, name, v)
		}
	}
}

func timeSummary(fqName, help string, s distribution.TimeSnapshot) prometheus.Metric {
	quantiles := map[float64]float64{
		0.5: s.P50, 0.75: s.P75, 0.9: s.P90, 0.95: s.P95, 0.99: s.P99,
	}
	return summary(fqName+"_"+s.Unit, help+" in "+s.Unit, s.Count, s.Total, quantiles)
}

func gauge(fqName, help string, v float64) prometheus.Metric {
	return prometheus.MustNewConstMetric(prometheus.NewDesc(fqName, help, nil, nil), prometheus.GaugeValue, v)
}

// summary builds a const summary. Decayed counts are fractional and get
// rounded, quantiles of an empty distribution are NaN, which prometheus accepts.
func summary(fqName, help string, count, sum float64, quantiles map[float64]float64) prometheus.Metric {
	return prometheus.MustNewConstSummary(
		prometheus.NewDesc(fqName, help, nil, nil),
		uint64(math.Round(count)), sum, quantiles,
	)
}

// fqName turns a dotted metric name into a valid prometheus name.
func (c *PrometheusCollector) fqName(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, name)
	return prometheus.BuildFQName(c.namespace, "", name)
}
