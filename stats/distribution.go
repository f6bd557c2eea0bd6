package stats

import (
	"time"

	"github.com/grafana/decaystats/clock"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/distribution"
)

var defaultClock = clock.New()

// mustCounter builds a decaying counter for alpha. Metrics are declared as
// package level vars, so an invalid alpha is a programming error.
func mustCounter(alpha float64) *decay.Counter {
	c, err := decay.NewCounter(alpha)
	if err != nil {
		panic(err)
	}
	return c
}

// Distribution tracks a forward decayed distribution of arbitrary values,
// reported as count, total, a handful of percentiles, min, max and mean.
type Distribution struct {
	*distribution.Distribution
}

// NewDistribution registers a Distribution decaying with alpha.
// See the decay package for ready made alphas.
func NewDistribution(name string, alpha float64) *Distribution {
	d, err := distribution.New(alpha)
	if err != nil {
		panic(err)
	}
	return registry.getOrAdd(name, &Distribution{d}).(*Distribution)
}

func (d *Distribution) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	s := d.Snapshot()
	buf = WriteFloat64(buf, prefix, []byte("count.gauge64"), s.Count, now)
	buf = WriteFloat64(buf, prefix, []byte("total.gauge64"), s.Total, now)
	buf = WriteFloat64(buf, prefix, []byte("min.gauge64"), s.Min, now)
	buf = WriteFloat64(buf, prefix, []byte("max.gauge64"), s.Max, now)
	buf = WriteFloat64(buf, prefix, []byte("mean.gauge64"), s.Avg, now)
	buf = WriteFloat64(buf, prefix, []byte("median.gauge64"), s.P50, now)
	buf = WriteFloat64(buf, prefix, []byte("p75.gauge64"), s.P75, now)
	buf = WriteFloat64(buf, prefix, []byte("p90.gauge64"), s.P90, now)
	buf = WriteFloat64(buf, prefix, []byte("p99.gauge64"), s.P99, now)
	return buf
}

func (d *Distribution) StatsSnapshot() interface{} {
	return d.Snapshot()
}

// TimeDistribution tracks forward decayed latencies. Values go in as
// durations and come out in the unit the metric was declared with.
type TimeDistribution struct {
	*distribution.TimeDistribution
}

// NewTimeDistribution registers a TimeDistribution that decays with a one
// minute half-life and reports in unit.
func NewTimeDistribution(name string, unit time.Duration) *TimeDistribution {
	return registry.getOrAdd(name, newUnregisteredTimeDistribution(unit)).(*TimeDistribution)
}

func newUnregisteredTimeDistribution(unit time.Duration) *TimeDistribution {
	td, err := distribution.NewTimeDistributionWithClock(decay.OneMinute(), unit, defaultClock)
	if err != nil {
		panic(err)
	}
	return &TimeDistribution{td}
}

// Since records the time elapsed since start.
func (t *TimeDistribution) Since(start time.Time) {
	t.AddDuration(time.Since(start))
}

func (t *TimeDistribution) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	s := t.Snapshot()
	unit := []byte(s.Unit)
	key := func(k string) []byte {
		return append(append([]byte(k), '.'), unit...)
	}
	buf = WriteFloat64(buf, prefix, []byte("count.gauge64"), s.Count, now)
	buf = WriteFloat64(buf, prefix, key("min"), s.Min, now)
	buf = WriteFloat64(buf, prefix, key("max"), s.Max, now)
	buf = WriteFloat64(buf, prefix, key("mean"), s.Avg, now)
	buf = WriteFloat64(buf, prefix, key("median"), s.P50, now)
	buf = WriteFloat64(buf, prefix, key("p75"), s.P75, now)
	buf = WriteFloat64(buf, prefix, key("p90"), s.P90, now)
	buf = WriteFloat64(buf, prefix, key("p95"), s.P95, now)
	buf = WriteFloat64(buf, prefix, key("p99"), s.P99, now)
	return buf
}

func (t *TimeDistribution) StatsSnapshot() interface{} {
	return t.Snapshot()
}

// DecayCounter is a forward decayed sum, reported as its current
// decayed count and rate per second.
type DecayCounter struct {
	*decay.Counter
}

func NewDecayCounter(name string, alpha float64) *DecayCounter {
	return registry.getOrAdd(name, &DecayCounter{mustCounter(alpha)}).(*DecayCounter)
}

func (c *DecayCounter) Inc() {
	c.Add(1)
}

func (c *DecayCounter) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	s := c.Snapshot()
	buf = WriteFloat64(buf, prefix, []byte("count.gauge64"), s.Count, now)
	return WriteFloat64(buf, prefix, []byte("rate.gauge64"), s.Rate, now)
}

func (c *DecayCounter) StatsSnapshot() interface{} {
	return c.Snapshot()
}
