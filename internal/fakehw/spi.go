package fakehw

import (
	"sync"

	"serio/core"
	"serio/internal/irqsim"
)

// SPIIdle is the idle bit in the SPI model's status register.
const SPIIdle = 0x10

// Slave answers one clocked byte. edge counts bytes since the model was
// created or Reset; mosi is the byte the master sent on that edge.
type Slave func(edge int, mosi byte) (miso byte)

// SPI is an SPI master model. Each step clocks one byte from the transmit
// FIFO, records it, and pushes the slave's answer into the receive FIFO.
// The transmit interrupt latches whenever a byte leaves the transmit FIFO;
// the receive interrupt is level-triggered on a non-empty receive FIFO.
type SPI struct {
	IRQ    *irqsim.Controller
	TxLine *irqsim.Line
	RxLine *irqsim.Line

	mu      sync.Mutex
	depth   int
	slave   Slave
	txFifo  []byte
	rxFifo  []byte
	mosi    []byte
	edge    int
	started bool
	clears  int
}

// NewSPI creates an SPI model with FIFOs of the given depth. A nil slave
// answers every edge with 0xff.
func NewSPI(depth int, slave Slave) *SPI {
	if slave == nil {
		slave = func(int, byte) byte { return 0xff }
	}
	f := &SPI{IRQ: irqsim.New(), depth: depth, slave: slave}
	f.TxLine = f.IRQ.NewLine("spi-tx", nil)
	f.RxLine = f.IRQ.NewLine("spi-rx", f.rxPending)
	f.IRQ.AddTicker(f.clock)
	return f
}

func (f *SPI) rxPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rxFifo) > 0
}

// clock shifts one byte while the receive FIFO has room.
func (f *SPI) clock() bool {
	f.mu.Lock()
	if !f.started || len(f.txFifo) == 0 || len(f.rxFifo) >= f.depth {
		f.mu.Unlock()
		return false
	}
	b := f.txFifo[0]
	f.txFifo = f.txFifo[1:]
	f.mosi = append(f.mosi, b)
	f.rxFifo = append(f.rxFifo, f.slave(f.edge, b))
	f.edge++
	f.mu.Unlock()

	f.TxLine.Raise()
	return true
}

// Start implements spi.Port.
func (f *SPI) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.IRQ.Kick()
}

func (f *SPI) EnableTxInterrupt()  { f.TxLine.Enable() }
func (f *SPI) DisableTxInterrupt() { f.TxLine.Disable() }
func (f *SPI) EnableRxInterrupt()  { f.RxLine.Enable() }
func (f *SPI) DisableRxInterrupt() { f.RxLine.Disable() }

// ReadTxStatus reports SPIIdle when nothing is queued, clocking or waiting
// to be read. It samples inside a critical section, the way a foreground
// read on one core never overlaps a handler; do not call it from one.
func (f *SPI) ReadTxStatus() uint8 {
	st := core.DisableInterrupts()
	defer core.RestoreInterrupts(st)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.txFifo) == 0 && len(f.rxFifo) == 0 {
		return SPIIdle
	}
	return 0
}

// WriteTxData queues b for clocking. Writes to a full FIFO are dropped.
func (f *SPI) WriteTxData(b byte) {
	f.mu.Lock()
	if len(f.txFifo) < f.depth {
		f.txFifo = append(f.txFifo, b)
	}
	f.mu.Unlock()
	f.IRQ.Kick()
}

// ReadRxData pops the oldest received byte, or 0 if none.
func (f *SPI) ReadRxData() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rxFifo) == 0 {
		return 0
	}
	b := f.rxFifo[0]
	f.rxFifo = f.rxFifo[1:]
	return b
}

// RxBufferSize returns the number of bytes in the receive FIFO.
func (f *SPI) RxBufferSize() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint8(len(f.rxFifo))
}

// ClearFIFO empties both FIFOs.
func (f *SPI) ClearFIFO() {
	f.mu.Lock()
	f.txFifo = nil
	f.rxFifo = nil
	f.clears++
	f.mu.Unlock()
}

// BindInterrupts implements spi.InterruptBinder. The lines stay masked
// until the engine enables them.
func (f *SPI) BindInterrupts(tx, rx func()) {
	f.TxLine.SetHandler(tx)
	f.RxLine.SetHandler(rx)
}

// MOSI returns a copy of every byte clocked out so far.
func (f *SPI) MOSI() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.mosi...)
}

// Edges returns the number of bytes clocked so far.
func (f *SPI) Edges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edge
}

// Reset forgets the clocked history.
func (f *SPI) Reset() {
	f.mu.Lock()
	f.mosi = nil
	f.edge = 0
	f.mu.Unlock()
}

// FIFOClears returns how often ClearFIFO was called.
func (f *SPI) FIFOClears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}
