package vb

import "github.com/grailbio/base/syncqueue"

// Pool is a free-list of VB buffers sized to max_threads, the same
// role WriteBufPool plays for fieldWriteBuf in
// encoding/pam/fieldio/writer.go: bound the number of in-flight VBs
// so a fast reader cannot race arbitrarily far ahead of slower
// segmenters/compressors (spec.md §5 "bounded in-flight VBs").
type Pool struct {
	capacity int
	queue    *syncqueue.LIFO
	vbs      []*VB
}

// NewPool creates a pool of capacity pre-allocated VBs.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{capacity: capacity, queue: syncqueue.NewLIFO(), vbs: make([]*VB, capacity)}
	for i := 0; i < capacity; i++ {
		v := &VB{}
		p.vbs[i] = v
		p.queue.Put(v)
	}
	lockPool(p)
	return p
}

// Get blocks until a VB is available, the backpressure mechanism that
// keeps the reader from running arbitrarily far ahead of the
// segmenter/compressor stages (spec.md §5).
func (p *Pool) Get() *VB {
	v, ok := p.queue.Get()
	if !ok {
		panic("vb: pool closed")
	}
	return v.(*VB)
}

// Put returns v to the pool once its section bytes have been written
// to the output file and it is no longer referenced.
func (p *Pool) Put(v *VB) {
	p.queue.Put(v)
}

// Capacity reports how many VBs this pool can hold in flight at once.
func (p *Pool) Capacity() int { return p.capacity }
