package stats

import (
	"context"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/grafana/decaystats/clock"
	"github.com/grafana/decaystats/decay"
)

// PauseMeter measures how late the process wakes up from a short sleep.
// Lateness is caused by GC pauses, CPU starvation and scheduler latency, and
// it directly adds to the latency of everything else the process does.
// The exact per-interval maximum comes from an hdr histogram that resets at
// every report, the percentiles from a decaying distribution.
type PauseMeter struct {
	interval time.Duration
	clock    clock.Clock

	sync.Mutex
	hist *hdrhistogram.Histogram
	dist *TimeDistribution
}

// pauses longer than a minute are clamped
const maxPause = int64(time.Minute)

func newPauseMeter(name string, interval time.Duration, clk clock.Clock) *PauseMeter {
	return registry.getOrAdd(name, &PauseMeter{
		interval: interval,
		clock:    clk,
		hist:     hdrhistogram.New(1, maxPause, 3),
		dist:     newUnregisteredTimeDistribution(time.Microsecond),
	}).(*PauseMeter)
}

// NewPauseMeter registers a PauseMeter and starts sleeping every interval
// until ctx is canceled.
func NewPauseMeter(ctx context.Context, name string, interval time.Duration) *PauseMeter {
	p := newPauseMeter(name, interval, clock.New())
	go p.run(ctx)
	return p
}

func (p *PauseMeter) run(ctx context.Context) {
	timer := p.clock.Timer(p.interval)
	defer timer.Stop()
	for {
		pre := p.clock.Now()
		select {
		case <-timer.C:
			p.observe(p.clock.Since(pre) - p.interval)
			timer.Reset(p.interval)
		case <-ctx.Done():
			return
		}
	}
}

func (p *PauseMeter) observe(late time.Duration) {
	if late < 0 {
		late = 0
	}
	v := int64(late)
	if v > maxPause {
		v = maxPause
	}
	p.Lock()
	p.hist.RecordValue(v)
	p.Unlock()
	p.dist.Add(v)
}

func (p *PauseMeter) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	p.Lock()
	count := p.hist.TotalCount()
	max := p.hist.Max()
	p999 := p.hist.ValueAtQuantile(99.9)
	p.hist.Reset()
	p.Unlock()

	// if no values were seen, don't report the interval values
	if count > 0 {
		buf = WriteUint64(buf, prefix, []byte("interval.max.us"), uint64(max/int64(time.Microsecond)), now)
		buf = WriteUint64(buf, prefix, []byte("interval.p999.us"), uint64(p999/int64(time.Microsecond)), now)
	}
	s := p.dist.Snapshot()
	buf = WriteFloat64(buf, prefix, []byte("median.us"), s.P50, now)
	buf = WriteFloat64(buf, prefix, []byte("p99.us"), s.P99, now)
	return buf
}

func (p *PauseMeter) StatsSnapshot() interface{} {
	return p.dist.Snapshot()
}

func (p *PauseMeter) Digest() *decay.Digest {
	return p.dist.Digest()
}
