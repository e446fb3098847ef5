package protocol

import "sync"

// BytePool is a pool of reusable []byte buffers, shared by every listener
// in this module to keep per-connection I/O off the GC's hot path.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool whose buffers start at defaultCap capacity.
func NewBytePool(defaultCap int) *BytePool {
	p := &BytePool{}
	p.pool.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return p
}

// Get returns a zeroed slice of length size, reusing a pooled buffer when
// it is large enough.
func (p *BytePool) Get(size int) []byte {
	b := p.pool.Get().([]byte)
	if cap(b) < size {
		p.pool.Put(b)
		return make([]byte, size)
	}
	b = b[:size]
	clear(b)
	return b
}

// Put returns b to the pool.
func (p *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	p.pool.Put(b[:0])
}
