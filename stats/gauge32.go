package stats

import (
	"time"

	"go.uber.org/atomic"
)

type Gauge32 struct {
	val atomic.Uint32
}

func NewGauge32(name string) *Gauge32 {
	return registry.getOrAdd(name, &Gauge32{}).(*Gauge32)
}

func (g *Gauge32) Inc() {
	g.val.Inc()
}

func (g *Gauge32) Dec() {
	g.val.Dec()
}

func (g *Gauge32) AddUint32(val uint32) {
	g.val.Add(val)
}

func (g *Gauge32) DecUint32(val uint32) {
	g.val.Sub(val)
}

func (g *Gauge32) Add(val int) {
	if val == 0 {
		return
	}
	if val > 0 {
		g.AddUint32(uint32(val))
		return
	}
	// < 0
	g.DecUint32(uint32(-1 * val))
}

func (g *Gauge32) Set(val int) {
	g.val.Store(uint32(val))
}

func (g *Gauge32) SetUint32(val uint32) {
	g.val.Store(val)
}

func (g *Gauge32) Peek() uint32 {
	return g.val.Load()
}

func (g *Gauge32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	return WriteUint32(buf, prefix, []byte("gauge32"), g.val.Load(), now)
}

func (g *Gauge32) StatsSnapshot() interface{} {
	return g.val.Load()
}
