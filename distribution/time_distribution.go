package distribution

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dgryski/go-jump"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/errors"
	"github.com/grafana/decaystats/tdigest"
	"go.uber.org/atomic"
)

const (
	stripeCount   = 16
	mergeInterval = 100 * time.Millisecond
)

// stripe is one independently locked slice of a TimeDistribution.
type stripe struct {
	sync.Mutex
	digest *decay.Digest
	total  *decay.Counter
}

// a token remembers which stripe its holder writes to. Tokens live in a
// sync.Pool, which hands them out per P, so goroutines on the same P tend to
// share a stripe while different Ps spread out over all of them.
type token struct {
	stripe int
}

var (
	lastTokenKey atomic.Uint64
	tokens       = sync.Pool{
		New: func() interface{} {
			return &token{stripe: int(jump.Hash(lastTokenKey.Inc(), stripeCount))}
		},
	}
)

func pickStripe() int {
	t := tokens.Get().(*token)
	i := t.stripe
	tokens.Put(t)
	return i
}

// TimeDistribution is a decayed distribution of durations built for many
// concurrent writers. Writes go to one of 16 stripes; reads fold the stripes
// into a merged view at most once per 100ms (or on ForceMerge).
// Values are recorded in nanoseconds and reported in Unit.
type TimeDistribution struct {
	alpha   float64
	unit    time.Duration
	clock   clock.Clock
	stripes [stripeCount]stripe

	mu          sync.Mutex
	merged      *decay.Digest
	mergedTotal *decay.Counter
	lastMerge   time.Time
}

// TimeSnapshot is a point in time summary of a TimeDistribution, in Unit.
type TimeSnapshot struct {
	Count float64 `json:"count"`
	Total float64 `json:"total"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Unit  string  `json:"unit"`
}

var timeSnapshotQuantiles = []float64{0.5, 0.75, 0.9, 0.95, 0.99}

// NewTimeDistribution returns a TimeDistribution reporting in seconds.
func NewTimeDistribution(alpha float64) (*TimeDistribution, error) {
	return NewTimeDistributionWithClock(alpha, time.Second, clock.New())
}

func NewTimeDistributionWithClock(alpha float64, unit time.Duration, clk clock.Clock) (*TimeDistribution, error) {
	if unit <= 0 {
		return nil, errors.NewInvalidArgumentf("distribution: unit must be > 0, got %s", unit)
	}
	td := &TimeDistribution{
		alpha: alpha,
		unit:  unit,
		clock: clk,
	}
	var err error
	if td.merged, td.mergedTotal, err = newPair(alpha, clk); err != nil {
		return nil, err
	}
	for i := range td.stripes {
		if td.stripes[i].digest, td.stripes[i].total, err = newPair(alpha, clk); err != nil {
			return nil, err
		}
	}
	return td, nil
}

func newPair(alpha float64, clk clock.Clock) (*decay.Digest, *decay.Counter, error) {
	digest, err := decay.NewDigestWithClock(tdigest.DefaultCompression, alpha, clk)
	if err != nil {
		return nil, nil, err
	}
	total, err := decay.NewCounterWithClock(alpha, clk)
	if err != nil {
		return nil, nil, err
	}
	return digest, total, nil
}

func (td *TimeDistribution) Alpha() float64 {
	return td.alpha
}

func (td *TimeDistribution) Unit() time.Duration {
	return td.unit
}

// Add records a duration expressed in nanoseconds.
func (td *TimeDistribution) Add(nanos int64) error {
	value := float64(nanos)
	s := &td.stripes[pickStripe()]
	s.Lock()
	defer s.Unlock()
	if err := s.digest.Add(value); err != nil {
		return err
	}
	s.total.Add(value)
	return nil
}

func (td *TimeDistribution) AddDuration(d time.Duration) error {
	return td.Add(int64(d))
}

// ForceMerge folds all stripes into the merged view now.
func (td *TimeDistribution) ForceMerge() {
	td.mu.Lock()
	td.mergeLocked(true)
	td.mu.Unlock()
}

// mergeLocked folds every stripe into the merged digest and counter, one
// stripe lock at a time, unless that happened less than mergeInterval ago.
// Requires td.mu.
func (td *TimeDistribution) mergeLocked(force bool) {
	now := td.clock.Now()
	if !force && now.Sub(td.lastMerge) < mergeInterval {
		return
	}
	for i := range td.stripes {
		s := &td.stripes[i]
		s.Lock()
		if s.digest.CentroidCount() > 0 || s.total.Count() != 0 {
			landmark := s.digest.Landmark()
			if l := td.merged.Landmark(); l > landmark {
				landmark = l
			}
			td.merged.RescaleTo(landmark)
			s.digest.RescaleTo(landmark)
			if err := td.merged.Merge(s.digest); err != nil {
				panic(errors.NewInternal("distribution: merging aligned stripe failed: " + err.Error()))
			}
			if err := td.mergedTotal.Merge(s.total); err != nil {
				panic(errors.NewInternal("distribution: merging stripe total failed: " + err.Error()))
			}
			s.digest.Reset()
			s.total.Reset()
		}
		s.Unlock()
	}
	td.lastMerge = now
}

func (td *TimeDistribution) convert(nanos float64) float64 {
	return nanos / float64(td.unit)
}

// Count returns the decayed number of recorded durations.
func (td *TimeDistribution) Count() float64 {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.merged.Count()
}

// Total returns the decayed sum of recorded durations, in Unit.
func (td *TimeDistribution) Total() float64 {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.convert(td.mergedTotal.Count())
}

func (td *TimeDistribution) Min() float64 {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.convert(td.merged.Min())
}

func (td *TimeDistribution) Max() float64 {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.convert(td.merged.Max())
}

func (td *TimeDistribution) Avg() float64 {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.convert(avg(td.mergedTotal.Count(), td.merged.Count()))
}

// Percentile returns the duration at quantile q, in Unit.
func (td *TimeDistribution) Percentile(q float64) (float64, error) {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	v, err := td.merged.ValueAt(q)
	if err != nil {
		return math.NaN(), err
	}
	return td.convert(v), nil
}

func (td *TimeDistribution) Snapshot() TimeSnapshot {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)

	count := td.merged.Count()
	total := td.mergedTotal.Count()
	ps, _ := td.merged.ValuesAt(timeSnapshotQuantiles...)
	return TimeSnapshot{
		Count: count,
		Total: td.convert(total),
		P50:   td.convert(ps[0]),
		P75:   td.convert(ps[1]),
		P90:   td.convert(ps[2]),
		P95:   td.convert(ps[3]),
		P99:   td.convert(ps[4]),
		Min:   td.convert(td.merged.Min()),
		Max:   td.convert(td.merged.Max()),
		Avg:   td.convert(avg(total, count)),
		Unit:  unitName(td.unit),
	}
}

// Digest returns a copy of the merged digest, in nanoseconds.
func (td *TimeDistribution) Digest() *decay.Digest {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.mergeLocked(false)
	return td.merged.Duplicate()
}

func (td *TimeDistribution) Reset() {
	td.mu.Lock()
	defer td.mu.Unlock()
	for i := range td.stripes {
		s := &td.stripes[i]
		s.Lock()
		s.digest.Reset()
		s.total.Reset()
		s.Unlock()
	}
	td.merged.Reset()
	td.mergedTotal.Reset()
	td.lastMerge = time.Time{}
}

func unitName(unit time.Duration) string {
	switch unit {
	case time.Nanosecond:
		return "ns"
	case time.Microsecond:
		return "us"
	case time.Millisecond:
		return "ms"
	case time.Second:
		return "s"
	case time.Minute:
		return "m"
	case time.Hour:
		return "h"
	}
	return unit.String()
}
