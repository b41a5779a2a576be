package render

import (
	"sync"
)

// BufferPool holds a set of named byte buffer pools so per frame scratch
// buffers can be reused between frames of the same size
type BufferPool struct {
	mu    sync.Mutex
	pools map[string]*bufferEntry
}

// bufferEntry defines a single buffer
type bufferEntry struct {
	pool    sync.Pool
	maxSize int
}

// NewBufferPool returns an empty BufferPool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pools: make(map[string]*bufferEntry),
	}
}

// entry returns the pool registered under name, registering one producing
// buffers of size when the name is new
func (b *BufferPool) entry(name string, size int) *bufferEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.pools[name]

	if !ok {
		e = &bufferEntry{maxSize: size}
		e.pool.New = func() any {
			return make([]uint8, size)
		}
		b.pools[name] = e
	}

	return e
}

// Get returns a []uint8 slice of length size from the named pool.  The
// contents are not cleared.  A nil BufferPool always allocates
func (b *BufferPool) Get(name string, size int) []uint8 {

	if b == nil {
		return make([]uint8, size)
	}

	buf := b.entry(name, size).pool.Get().([]uint8)

	if cap(buf) < size {
		return make([]uint8, size)
	}

	return buf[:size]
}

// Put returns a buffer obtained from Get back into its named pool.  Buffers
// smaller than the pool size are dropped
func (b *BufferPool) Put(name string, buf []uint8) {

	if b == nil {
		return
	}

	b.mu.Lock()
	e, ok := b.pools[name]
	b.mu.Unlock()

	if !ok || cap(buf) < e.maxSize {
		return
	}

	// restore to full capacity so it matches entry.New next time
	e.pool.Put(buf[:e.maxSize])
}
