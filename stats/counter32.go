package stats

import (
	"time"

	"go.uber.org/atomic"
)

type Counter32 struct {
	val atomic.Uint32
}

func NewCounter32(name string) *Counter32 {
	return registry.getOrAdd(name, &Counter32{}).(*Counter32)
}

func (c *Counter32) SetUint32(val uint32) {
	c.val.Store(val)
}

func (c *Counter32) Inc() {
	c.val.Inc()
}

func (c *Counter32) Add(val int) {
	c.AddUint32(uint32(val))
}

func (c *Counter32) AddUint32(val uint32) {
	c.val.Add(val)
}

func (c *Counter32) Peek() uint32 {
	return c.val.Load()
}

func (c *Counter32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	return WriteUint32(buf, prefix, []byte("counter32"), c.val.Load(), now)
}

func (c *Counter32) StatsSnapshot() interface{} {
	return c.val.Load()
}
