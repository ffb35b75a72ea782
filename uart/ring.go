package uart

import "sync/atomic"

// Ring is a single-producer single-consumer byte ring. The producer (the
// receive interrupt) owns the write index, the consumer (foreground reads)
// owns the read index. One slot is never filled, so equal indices always
// mean empty; when the ring is full new bytes are dropped and the sticky
// overflow flag is set.
type Ring struct {
	buf      []byte
	rd       atomic.Uint32
	wr       atomic.Uint32
	overflow atomic.Bool
}

// NewRing creates a ring holding up to capacity-1 bytes. Capacity must be at
// least 2.
func NewRing(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Cap returns the ring capacity, one more than the bytes it can hold.
func (r *Ring) Cap() int {
	return len(r.buf)
}

func (r *Ring) next(i uint32) uint32 {
	i++
	if i == uint32(len(r.buf)) {
		return 0
	}
	return i
}

// Put stores b. Producer side only. It returns false and sets the overflow
// flag when the ring is full.
func (r *Ring) Put(b byte) bool {
	wr := r.wr.Load()
	nwr := r.next(wr)
	if nwr == r.rd.Load() {
		r.overflow.Store(true)
		return false
	}
	r.buf[wr] = b
	r.wr.Store(nwr)
	return true
}

// Get removes the oldest byte. Consumer side only.
func (r *Ring) Get() (byte, bool) {
	rd := r.rd.Load()
	if rd == r.wr.Load() {
		return 0, false
	}
	b := r.buf[rd]
	r.rd.Store(r.next(rd))
	return b, true
}

// Read copies up to len(p) bytes out of the ring. Consumer side only.
func (r *Ring) Read(p []byte) int {
	n := 0
	for n < len(p) {
		b, ok := r.Get()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n
}

// Len returns the number of bytes available. A concurrent producer can only
// make the real count larger.
func (r *Ring) Len() int {
	rd, wr := r.rd.Load(), r.wr.Load()
	if wr >= rd {
		return int(wr - rd)
	}
	return len(r.buf) - int(rd-wr)
}

// Free returns how many more bytes fit.
func (r *Ring) Free() int {
	return len(r.buf) - 1 - r.Len()
}

// IndexByte returns the length of the data up to and including the first c,
// or 0 if c is not buffered. The ring is not modified.
func (r *Ring) IndexByte(c byte) int {
	rd, wr := r.rd.Load(), r.wr.Load()
	n := 0
	for rd != wr {
		n++
		if r.buf[rd] == c {
			return n
		}
		rd = r.next(rd)
	}
	return 0
}

// Overflowed reports whether a byte was dropped since the last Reset.
func (r *Ring) Overflowed() bool {
	return r.overflow.Load()
}

// Reset empties the ring and clears the overflow flag. Neither side may run
// concurrently with it.
func (r *Ring) Reset() int {
	n := r.Len()
	r.rd.Store(0)
	r.wr.Store(0)
	r.overflow.Store(false)
	return n
}
