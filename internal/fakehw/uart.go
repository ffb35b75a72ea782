// Package fakehw models UART and SPI peripherals on the host. The models
// follow the register contract the drivers expect and raise interrupts
// through an irqsim controller, so tests can drive them step by step or let
// them run freely.
package fakehw

import (
	"sync"

	"serio/internal/irqsim"
)

// UART status bits reported by the model.
const (
	UARTTxReady = 0x01
	UARTRxReady = 0x20
)

// UART is a full-duplex UART model. Bytes written to the transmit FIFO
// shift out one per step onto the wire; the transmit interrupt fires each
// time the FIFO runs empty. The receive interrupt is level-triggered on a
// non-empty receive queue.
type UART struct {
	IRQ    *irqsim.Controller
	TxLine *irqsim.Line
	RxLine *irqsim.Line

	mu       sync.Mutex
	depth    int
	txFifo   []byte
	rxFifo   []byte
	wire     []byte
	started  bool
	stalled  bool
	loopback bool
	overruns int
	txClears int
	rxClears int
}

// NewUART creates a UART model whose transmit FIFO holds depth bytes.
func NewUART(depth int) *UART {
	f := &UART{IRQ: irqsim.New(), depth: depth}
	f.TxLine = f.IRQ.NewLine("uart-tx", nil)
	f.RxLine = f.IRQ.NewLine("uart-rx", f.rxPending)
	f.IRQ.AddTicker(f.shift)
	return f
}

func (f *UART) rxPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rxFifo) > 0
}

// shift moves one byte from the transmit FIFO to the wire.
func (f *UART) shift() bool {
	f.mu.Lock()
	if !f.started || f.stalled || len(f.txFifo) == 0 {
		f.mu.Unlock()
		return false
	}
	b := f.txFifo[0]
	f.txFifo = f.txFifo[1:]
	f.wire = append(f.wire, b)
	if f.loopback {
		f.rxFifo = append(f.rxFifo, b)
	}
	empty := len(f.txFifo) == 0
	f.mu.Unlock()

	if empty {
		f.TxLine.Raise()
	}
	return true
}

// Start implements uart.Port.
func (f *UART) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.IRQ.Kick()
}

// Stop implements uart.Stopper.
func (f *UART) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

// ReadTxStatus reports UARTTxReady while the transmit FIFO is empty.
func (f *UART) ReadTxStatus() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.txFifo) == 0 {
		return UARTTxReady
	}
	return 0
}

// WriteTxData queues b. Writing to a full FIFO loses the byte.
func (f *UART) WriteTxData(b byte) {
	f.mu.Lock()
	if len(f.txFifo) >= f.depth {
		f.overruns++
	} else {
		f.txFifo = append(f.txFifo, b)
	}
	f.mu.Unlock()
	f.IRQ.Kick()
}

// ReadRxStatus reports UARTRxReady while received data is pending.
func (f *UART) ReadRxStatus() uint8 {
	if f.rxPending() {
		return UARTRxReady
	}
	return 0
}

// ReadRxData pops the oldest received byte, or 0 if none.
func (f *UART) ReadRxData() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rxFifo) == 0 {
		return 0
	}
	b := f.rxFifo[0]
	f.rxFifo = f.rxFifo[1:]
	return b
}

// ClearTxBuffer implements uart.TxClearer.
func (f *UART) ClearTxBuffer() {
	f.mu.Lock()
	f.txFifo = nil
	f.txClears++
	f.mu.Unlock()
}

// ClearRxBuffer implements uart.RxClearer.
func (f *UART) ClearRxBuffer() {
	f.mu.Lock()
	f.rxFifo = nil
	f.rxClears++
	f.mu.Unlock()
}

// DisableRxInterrupt implements uart.RxMasker.
func (f *UART) DisableRxInterrupt() { f.RxLine.Disable() }

// EnableRxInterrupt implements uart.RxMasker.
func (f *UART) EnableRxInterrupt() { f.RxLine.Enable() }

// RxInterruptEnabled implements uart.RxMasker.
func (f *UART) RxInterruptEnabled() bool { return f.RxLine.Enabled() }

// BindInterrupts implements uart.InterruptBinder and unmasks both lines.
func (f *UART) BindInterrupts(tx, rx func()) {
	f.TxLine.SetHandler(tx)
	f.RxLine.SetHandler(rx)
	f.TxLine.Enable()
	f.RxLine.Enable()
}

// Inject appends bytes to the hardware receive queue as if they arrived on
// the line.
func (f *UART) Inject(data []byte) {
	f.mu.Lock()
	f.rxFifo = append(f.rxFifo, data...)
	f.mu.Unlock()
	f.IRQ.Kick()
}

// SetLoopback feeds transmitted bytes back into the receive queue.
func (f *UART) SetLoopback(on bool) {
	f.mu.Lock()
	f.loopback = on
	f.mu.Unlock()
}

// Stall stops or resumes the transmitter, leaving queued bytes in place.
func (f *UART) Stall(on bool) {
	f.mu.Lock()
	f.stalled = on
	f.mu.Unlock()
	f.IRQ.Kick()
}

// Wire returns a copy of everything transmitted so far.
func (f *UART) Wire() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.wire...)
}

// Overruns returns how many bytes were written to a full transmit FIFO.
func (f *UART) Overruns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overruns
}

// Clears returns how often each hardware buffer was cleared.
func (f *UART) Clears() (tx, rx int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txClears, f.rxClears
}

// TxOnlyUART exposes only the transmit capabilities of a model.
type TxOnlyUART struct{ m *UART }

// TxOnly wraps f so it looks like a transmit-only port.
func (f *UART) TxOnly() *TxOnlyUART { return &TxOnlyUART{m: f} }

func (t *TxOnlyUART) Start()                      { t.m.Start() }
func (t *TxOnlyUART) ReadTxStatus() uint8         { return t.m.ReadTxStatus() }
func (t *TxOnlyUART) WriteTxData(b byte)          { t.m.WriteTxData(b) }
func (t *TxOnlyUART) BindInterrupts(tx, _ func()) { t.m.BindInterrupts(tx, nil) }

// RxOnlyUART exposes only the receive capabilities of a model.
type RxOnlyUART struct{ m *UART }

// RxOnly wraps f so it looks like a receive-only port without clear or
// mask support.
func (f *UART) RxOnly() *RxOnlyUART { return &RxOnlyUART{m: f} }

func (r *RxOnlyUART) Start()                      { r.m.Start() }
func (r *RxOnlyUART) ReadRxStatus() uint8         { return r.m.ReadRxStatus() }
func (r *RxOnlyUART) ReadRxData() byte            { return r.m.ReadRxData() }
func (r *RxOnlyUART) BindInterrupts(_, rx func()) { r.m.BindInterrupts(nil, rx) }
