package util

import (
	"sync"
)

// BufferPool hands out zero length byte slices to serialize into.
// Slices that grew beyond maxCap are not retained, so that one huge response
// does not pin its buffer for the life of the process.
type BufferPool struct {
	pool    sync.Pool
	initCap int
	maxCap  int
}

// NewBufferPool returns a pool of buffers starting at initCap bytes.
// maxCap <= 0 retains buffers of any size.
func NewBufferPool(initCap, maxCap int) *BufferPool {
	b := &BufferPool{
		initCap: initCap,
		maxCap:  maxCap,
	}
	b.pool.New = func() interface{} {
		return make([]byte, 0, b.initCap)
	}
	return b
}

func (b *BufferPool) Get() []byte {
	return b.pool.Get().([]byte)
}

func (b *BufferPool) Put(buf []byte) {
	if b.maxCap > 0 && cap(buf) > b.maxCap {
		return
	}
	b.pool.Put(buf[:0])
}
