package stats

import (
	"time"

	"go.uber.org/atomic"
)

type Gauge64 struct {
	val atomic.Uint64
}

func NewGauge64(name string) *Gauge64 {
	return registry.getOrAdd(name, &Gauge64{}).(*Gauge64)
}

func (g *Gauge64) Inc() {
	g.val.Inc()
}

func (g *Gauge64) Dec() {
	g.val.Dec()
}

func (g *Gauge64) AddUint64(val uint64) {
	g.val.Add(val)
}

func (g *Gauge64) DecUint64(val uint64) {
	g.val.Sub(val)
}

func (g *Gauge64) Set(val int) {
	g.val.Store(uint64(val))
}

func (g *Gauge64) SetUint64(val uint64) {
	g.val.Store(val)
}

func (g *Gauge64) Peek() uint64 {
	return g.val.Load()
}

func (g *Gauge64) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	return WriteUint64(buf, prefix, []byte("gauge64"), g.val.Load(), now)
}

func (g *Gauge64) StatsSnapshot() interface{} {
	return g.val.Load()
}
