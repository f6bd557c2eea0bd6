// Package distribution tracks decayed value distributions: quantiles, extremes,
// count and sum, all forgetting old samples at the same rate.
package distribution

import (
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/errors"
	"github.com/grafana/decaystats/tdigest"
)

// Distribution is a decayed digest plus a decayed sum behind a single lock.
// Use TimeDistribution for heavily contended, latency-style inputs.
type Distribution struct {
	alpha float64

	mu     sync.Mutex
	digest *decay.Digest
	total  *decay.Counter
}

// Snapshot is a point in time summary of a Distribution.
type Snapshot struct {
	Count float64 `json:"count"`
	Total float64 `json:"total"`
	P01   float64 `json:"p01"`
	P05   float64 `json:"p05"`
	P10   float64 `json:"p10"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

var snapshotQuantiles = []float64{0.01, 0.05, 0.10, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99}

// New returns a Distribution decaying at alpha. 0 means no decay.
func New(alpha float64) (*Distribution, error) {
	return NewWithClock(alpha, clock.New())
}

func NewWithClock(alpha float64, clk clock.Clock) (*Distribution, error) {
	digest, err := decay.NewDigestWithClock(tdigest.DefaultCompression, alpha, clk)
	if err != nil {
		return nil, err
	}
	total, err := decay.NewCounterWithClock(alpha, clk)
	if err != nil {
		return nil, err
	}
	return &Distribution{
		alpha:  alpha,
		digest: digest,
		total:  total,
	}, nil
}

func (d *Distribution) Alpha() float64 {
	return d.alpha
}

func (d *Distribution) Add(value float64) error {
	return d.AddCount(value, 1)
}

// AddCount records value as if it was seen count times.
func (d *Distribution) AddCount(value float64, count int64) error {
	if count <= 0 {
		return errors.NewInvalidArgumentf("distribution: count must be > 0, got %d", count)
	}
	sum := value * float64(count)
	if math.IsInf(sum, 0) && !math.IsInf(value, 0) {
		return errors.NewInvalidArgumentf("distribution: %v * %d overflows", value, count)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.digest.AddWeighted(value, float64(count)); err != nil {
		return err
	}
	return d.total.Add(sum)
}

func (d *Distribution) Count() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digest.Count()
}

func (d *Distribution) Total() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total.Count()
}

func (d *Distribution) Min() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digest.Min()
}

func (d *Distribution) Max() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digest.Max()
}

// Avg returns Total / Count, or NaN when there is nothing to average.
func (d *Distribution) Avg() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return avg(d.total.Count(), d.digest.Count())
}

func avg(total, count float64) float64 {
	if count == 0 {
		return math.NaN()
	}
	return total / count
}

func (d *Distribution) Percentile(q float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digest.ValueAt(q)
}

// Percentiles returns the values at quantiles 0.00, 0.01 ... 0.99.
func (d *Distribution) Percentiles() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	values, _ := d.digest.ValuesAt(percentileQuantiles...)
	return values
}

var percentileQuantiles = func() []float64 {
	qs := make([]float64, 100)
	for i := range qs {
		qs[i] = float64(i) / 100
	}
	return qs
}()

func (d *Distribution) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := d.digest.Count()
	total := d.total.Count()
	ps, _ := d.digest.ValuesAt(snapshotQuantiles...)
	return Snapshot{
		Count: count,
		Total: total,
		P01:   ps[0],
		P05:   ps[1],
		P10:   ps[2],
		P25:   ps[3],
		P50:   ps[4],
		P75:   ps[5],
		P90:   ps[6],
		P95:   ps[7],
		P99:   ps[8],
		Min:   d.digest.Min(),
		Max:   d.digest.Max(),
		Avg:   avg(total, count),
	}
}

func (d *Distribution) Reset() {
	d.mu.Lock()
	d.digest.Reset()
	d.total.Reset()
	d.mu.Unlock()
}

// Digest returns a copy of the underlying decayed digest.
func (d *Distribution) Digest() *decay.Digest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digest.Duplicate()
}
