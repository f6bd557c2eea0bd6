package decay

import (
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/grafana/decaystats/errors"
	"go.uber.org/atomic"
)

var lastCounterID atomic.Uint64

// Counter is an exponentially decaying sum. It is safe for concurrent use.
type Counter struct {
	id    uint64
	alpha float64
	clock clock.Clock

	mu       sync.Mutex
	landmark int64 // unix seconds
	count    float64
}

// CounterSnapshot is a point in time view of a Counter.
type CounterSnapshot struct {
	Count float64 `json:"count"`
	Rate  float64 `json:"rate"`
}

func NewCounter(alpha float64) (*Counter, error) {
	return NewCounterWithClock(alpha, clock.New())
}

func NewCounterWithClock(alpha float64, clk clock.Clock) (*Counter, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	return &Counter{
		id:       lastCounterID.Inc(),
		alpha:    alpha,
		clock:    clk,
		landmark: clk.Now().Unix(),
	}, nil
}

func (c *Counter) Alpha() float64 {
	return c.alpha
}

func (c *Counter) now() int64 {
	return c.clock.Now().Unix()
}

func (c *Counter) Add(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.NewInvalidArgumentf("decay: counter value must be finite, got %v", value)
	}
	c.mu.Lock()
	now := c.now()
	if now-c.landmark >= RescaleThresholdSeconds {
		c.rescaleLocked(now)
	}
	c.count += value * Weight(c.alpha, now, c.landmark)
	c.mu.Unlock()
	return nil
}

func (c *Counter) rescaleLocked(newLandmark int64) {
	if newLandmark <= c.landmark {
		return
	}
	c.count = c.count / Weight(c.alpha, newLandmark, c.landmark)
	c.landmark = newLandmark
}

// Count returns the decayed sum as of now.
func (c *Counter) Count() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLocked()
}

func (c *Counter) countLocked() float64 {
	return c.count / Weight(c.alpha, c.now(), c.landmark)
}

// Rate returns the decayed sum per second.
func (c *Counter) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLocked() * c.alpha
}

func (c *Counter) Reset() {
	c.mu.Lock()
	c.count = 0
	c.landmark = c.now()
	c.mu.Unlock()
}

func (c *Counter) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := c.countLocked()
	return CounterSnapshot{
		Count: count,
		Rate:  count * c.alpha,
	}
}

// Merge adds other's decayed sum to c. The counter with the older landmark is
// brought forward to the newer one. Both counters are locked in a fixed global
// order, so concurrent merges in opposite directions are safe.
func (c *Counter) Merge(other *Counter) error {
	if c.alpha != other.alpha {
		return errors.NewInvalidArgumentf("decay: cannot merge counters with different alphas (%v vs %v)", c.alpha, other.alpha)
	}
	if c == other {
		c.mu.Lock()
		c.count *= 2
		c.mu.Unlock()
		return nil
	}
	if c.id < other.id {
		c.mu.Lock()
		other.mu.Lock()
	} else {
		other.mu.Lock()
		c.mu.Lock()
	}
	defer c.mu.Unlock()
	defer other.mu.Unlock()

	if other.landmark > c.landmark {
		c.rescaleLocked(other.landmark)
		c.count += other.count
	} else {
		c.count += other.count / Weight(c.alpha, c.landmark, other.landmark)
	}
	return nil
}

// Duplicate returns an independent copy of c sharing its clock.
func (c *Counter) Duplicate() *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Counter{
		id:       lastCounterID.Inc(),
		alpha:    c.alpha,
		clock:    c.clock,
		landmark: c.landmark,
		count:    c.count,
	}
}
