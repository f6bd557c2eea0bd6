package stats

import (
	"time"

	"go.uber.org/atomic"
)

type Bool struct {
	val atomic.Bool
}

func NewBool(name string) *Bool {
	return registry.getOrAdd(name, &Bool{}).(*Bool)
}

func (b *Bool) SetTrue() {
	b.val.Store(true)
}

func (b *Bool) SetFalse() {
	b.val.Store(false)
}

func (b *Bool) Set(val bool) {
	b.val.Store(val)
}

func (b *Bool) Peek() bool {
	return b.val.Load()
}

func (b *Bool) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	var val uint32
	if b.val.Load() {
		val = 1
	}
	return WriteUint32(buf, prefix, []byte("gauge1"), val, now)
}

func (b *Bool) StatsSnapshot() interface{} {
	return b.val.Load()
}
