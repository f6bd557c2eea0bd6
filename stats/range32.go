package stats

import (
	"math"
	"sync"
	"time"
)

// RangeWindow is the min and max seen during one reporting interval.
type RangeWindow struct {
	Min uint32 `json:"min"`
	Max uint32 `json:"max"`
}

// Range32 tracks the min and max of a value, such as a queue depth, per
// reporting interval. Min shows whether the queue drains, max how large it
// tends to grow. Each graphite report closes the current window.
type Range32 struct {
	sync.Mutex
	cur   RangeWindow
	seen  bool
	last  RangeWindow
	valid bool // whether last holds a closed window
}

func NewRange32(name string) *Range32 {
	r := &Range32{}
	r.cur.Min = math.MaxUint32
	return registry.getOrAdd(name, r).(*Range32)
}

func (r *Range32) Value(val int) {
	r.ValueUint32(uint32(val))
}

func (r *Range32) ValueUint32(val uint32) {
	r.Lock()
	if val < r.cur.Min {
		r.cur.Min = val
	}
	if val > r.cur.Max {
		r.cur.Max = val
	}
	r.seen = true
	r.Unlock()
}

// closeWindow moves the current window into last. Requires r.Lock.
func (r *Range32) closeWindow() {
	r.last = r.cur
	r.valid = true
	r.cur = RangeWindow{Min: math.MaxUint32}
	r.seen = false
}

// ReportGraphite reports nothing for intervals without values.
func (r *Range32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	r.Lock()
	if r.seen {
		buf = WriteUint32(buf, prefix, []byte("min.gauge32"), r.cur.Min, now)
		buf = WriteUint32(buf, prefix, []byte("max.gauge32"), r.cur.Max, now)
		r.closeWindow()
	}
	r.Unlock()
	return buf
}

// Window returns the current window if it saw values, else the last closed
// one. ok is false when nothing was ever recorded.
func (r *Range32) Window() (w RangeWindow, ok bool) {
	r.Lock()
	defer r.Unlock()
	if r.seen {
		return r.cur, true
	}
	return r.last, r.valid
}

func (r *Range32) StatsSnapshot() interface{} {
	w, ok := r.Window()
	if !ok {
		return nil
	}
	return w
}
