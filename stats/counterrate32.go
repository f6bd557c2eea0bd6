package stats

import (
	"time"

	"github.com/grafana/decaystats/decay"
	"go.uber.org/atomic"
)

// CounterRate32 publishes a counter32 as well as a rate32 in seconds.
// The rate is smoothed with a decaying counter rather than computed
// per flush interval, so it stays meaningful when flushes are irregular.
type CounterRate32 struct {
	val  atomic.Uint32
	rate *decay.Counter
}

func NewCounterRate32(name string) *CounterRate32 {
	return registry.getOrAdd(name, &CounterRate32{
		rate: mustCounter(decay.OneMinute()),
	}).(*CounterRate32)
}

func (c *CounterRate32) Inc() {
	c.AddUint32(1)
}

func (c *CounterRate32) Add(val int) {
	c.AddUint32(uint32(val))
}

func (c *CounterRate32) AddUint32(val uint32) {
	c.val.Add(val)
	c.rate.Add(float64(val))
}

func (c *CounterRate32) Peek() uint32 {
	return c.val.Load()
}

func (c *CounterRate32) Rate() float64 {
	return c.rate.Rate()
}

func (c *CounterRate32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	buf = WriteUint32(buf, prefix, []byte("counter32"), c.val.Load(), now)
	return WriteFloat64(buf, prefix, []byte("rate32"), c.rate.Rate(), now)
}

func (c *CounterRate32) StatsSnapshot() interface{} {
	return c.rate.Snapshot()
}
