package spi

import (
	"tinygo.org/x/drivers"
)

var _ drivers.SPI = (*Bus)(nil)

// Bus adapts an Engine to drivers.SPI so device drivers written against
// tinygo.org/x/drivers can use it. Every call waits for completion.
type Bus struct {
	e *Engine
}

// Bus returns the drivers.SPI view of e.
func (e *Engine) Bus() *Bus {
	return &Bus{e: e}
}

// Tx clocks max(len(w), len(r)) bytes; w is zero padded and r receives the
// bytes clocked in on the same edges. Either may be nil.
func (b *Bus) Tx(w, r []byte) error {
	return b.e.Exchange(w, r, true).Err()
}

// Transfer writes one byte and returns the byte clocked in with it.
func (b *Bus) Transfer(c byte) (byte, error) {
	var in [1]byte
	err := b.e.Exchange([]byte{c}, in[:], true).Err()
	return in[0], err
}
