package tdigest

import (
	"sync"

	"go.uber.org/atomic"
)

// stampedLock is a reader/writer lock with optimistic reads.
// seq is bumped when a writer acquires and again when it releases, so it is
// odd while a write is in progress. An optimistic reader grabs seq, reads
// atomic fields and then checks seq did not move.
type stampedLock struct {
	mu  sync.RWMutex
	seq atomic.Uint64
}

func (l *stampedLock) Lock() {
	l.mu.Lock()
	l.seq.Inc()
}

func (l *stampedLock) Unlock() {
	l.seq.Inc()
	l.mu.Unlock()
}

func (l *stampedLock) RLock() {
	l.mu.RLock()
}

func (l *stampedLock) RUnlock() {
	l.mu.RUnlock()
}

// tryOptimisticRead returns a stamp and whether it may be used.
// It never blocks.
func (l *stampedLock) tryOptimisticRead() (uint64, bool) {
	stamp := l.seq.Load()
	return stamp, stamp&1 == 0
}

// validate reports whether no writer acquired the lock since stamp was taken.
func (l *stampedLock) validate(stamp uint64) bool {
	return l.seq.Load() == stamp
}

var (
	// every digest gets a unique id, which gives a global order for
	// acquiring two digest locks at once
	lastID atomic.Uint64

	// serializes pairwise locking when both sides have the same id
	tieLock sync.Mutex
)

func nextID() uint64 {
	return lastID.Inc()
}

// lockPair write-locks dst and read-locks src, always in ascending id order
// so that concurrent a.MergeWith(b) and b.MergeWith(a) cannot deadlock.
// The returned function releases both.
func lockPair(dst, src *TDigest) func() {
	switch {
	case dst.id == src.id:
		tieLock.Lock()
		dst.lock.Lock()
		if dst == src {
			return func() {
				dst.lock.Unlock()
				tieLock.Unlock()
			}
		}
		src.lock.RLock()
		return func() {
			src.lock.RUnlock()
			dst.lock.Unlock()
			tieLock.Unlock()
		}
	case dst.id < src.id:
		dst.lock.Lock()
		src.lock.RLock()
	default:
		src.lock.RLock()
		dst.lock.Lock()
	}
	return func() {
		src.lock.RUnlock()
		dst.lock.Unlock()
	}
}
