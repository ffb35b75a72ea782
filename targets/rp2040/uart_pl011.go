//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	"serio/uart"
)

// PL011 register offsets and flag bits.
const (
	uart0Base = 0x40034000
	uart1Base = 0x40038000

	pl011DR   = 0x000
	pl011FR   = 0x018
	pl011CR   = 0x030
	pl011IMSC = 0x038
	pl011ICR  = 0x044

	frRXFE = 1 << 4
	frTXFE = 1 << 7

	crUARTEN = 1 << 0

	// The PL011 FIFOs are 32 entries deep.
	pl011FifoDepth = 32
)

// PL011 is a uart port over one RP2040 UART. machine configures the pins,
// baud rate and FIFOs; the driver callbacks then run from the board tick
// because machine owns the UART interrupt vectors.
type PL011 struct {
	machine *machine.UART
	config  machine.UARTConfig

	dr   *volatile.Register32
	fr   *volatile.Register32
	cr   *volatile.Register32
	imsc *volatile.Register32
	icr  *volatile.Register32

	tx, rx func()
}

func newPL011(m *machine.UART, base uintptr, cfg machine.UARTConfig) *PL011 {
	reg := func(off uintptr) *volatile.Register32 {
		return (*volatile.Register32)(unsafe.Pointer(base + off))
	}
	return &PL011{
		machine: m,
		config:  cfg,
		dr:      reg(pl011DR),
		fr:      reg(pl011FR),
		cr:      reg(pl011CR),
		imsc:    reg(pl011IMSC),
		icr:     reg(pl011ICR),
	}
}

// Start configures the UART and masks its interrupts so the machine
// receive handler never takes bytes from the FIFO.
func (p *PL011) Start() {
	p.machine.Configure(p.config)
	p.imsc.Set(0)
	p.icr.Set(0x7ff)
}

// Stop disables the UART.
func (p *PL011) Stop() {
	p.cr.ClearBits(crUARTEN)
}

// ReadTxStatus reports uart.DefaultTxReady once the transmit FIFO is empty.
func (p *PL011) ReadTxStatus() uint8 {
	if p.fr.HasBits(frTXFE) {
		return uart.DefaultTxReady
	}
	return 0
}

func (p *PL011) WriteTxData(b byte) {
	p.dr.Set(uint32(b))
}

// ReadRxStatus reports uart.DefaultRxReady while the receive FIFO holds data.
func (p *PL011) ReadRxStatus() uint8 {
	if !p.fr.HasBits(frRXFE) {
		return uart.DefaultRxReady
	}
	return 0
}

// ReadRxData pops one byte; the error bits in DR are dropped.
func (p *PL011) ReadRxData() byte {
	return byte(p.dr.Get())
}

// ClearRxBuffer drains the receive FIFO.
func (p *PL011) ClearRxBuffer() {
	for !p.fr.HasBits(frRXFE) {
		p.dr.Get()
	}
}

// BindInterrupts records the driver callbacks for service.
func (p *PL011) BindInterrupts(tx, rx func()) {
	p.tx, p.rx = tx, rx
}

// service runs the callbacks whose interrupt condition holds. It is called
// from the tick interrupt.
func (p *PL011) service() {
	fr := p.fr.Get()
	if p.rx != nil && fr&frRXFE == 0 {
		p.rx()
	}
	if p.tx != nil && fr&frTXFE != 0 {
		p.tx()
	}
}
