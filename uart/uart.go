package uart

import (
	"sync/atomic"
	"time"

	"serio/core"
)

// Mode flags.
type Mode uint8

const (
	// ModeNonBlockingWrite makes Send return as soon as the first byte is
	// queued instead of waiting for the transmit to finish.
	ModeNonBlockingWrite Mode = 0x01
)

// Hardware status bits used when the Config leaves them zero.
const (
	DefaultTxReady = 0x01 // transmit complete, FIFO can take a batch
	DefaultRxReady = 0x20 // receive FIFO not empty
)

// Defaults for Config fields left zero.
const (
	DefaultRxCapacity  = 128
	DefaultTxFifoDepth = 4
	DefaultDelimiter   = '\n'
)

// Config describes one UART instance.
type Config struct {
	// Unit tags debug events with the instance number.
	Unit uint8

	// RxCapacity is the receive ring size; it holds RxCapacity-1 bytes.
	RxCapacity int

	// TxFifoDepth caps how many bytes one transmit interrupt queues.
	TxFifoDepth int

	// Delimiter frames lines for Gets and CanReadLine. Zero selects '\n';
	// use SetDelimiter for a NUL delimiter.
	Delimiter byte

	Mode Mode

	// Timeout bounds every blocking wait. Zero waits forever.
	Timeout time.Duration

	// TxReady and RxReady are the status register bits meaning "transmit
	// FIFO can take data" and "receive data pending".
	TxReady uint8
	RxReady uint8
}

// DefaultConfig returns the configuration of a full-duplex PSoC-style UART.
func DefaultConfig() Config {
	return Config{
		RxCapacity:  DefaultRxCapacity,
		TxFifoDepth: DefaultTxFifoDepth,
		Delimiter:   DefaultDelimiter,
		TxReady:     DefaultTxReady,
		RxReady:     DefaultRxReady,
	}
}

// UART is an interrupt-driven stream over one hardware instance.
//
// Transmit state is set up by Send and then advanced only by
// HandleTxInterrupt until it marks the transmit done. The receive ring is
// filled only by HandleRxInterrupt and drained only by the read methods.
type UART struct {
	port Port
	tx   Transmitter // nil for a receive-only port
	rx   Receiver    // nil for a transmit-only port

	unit      uint8
	depth     int
	txReady   uint8
	rxReady   uint8
	timeout   time.Duration
	delimiter atomic.Uint32
	mode      atomic.Uint32

	// transmit, owned by the TX interrupt while txDone is false
	txBuf  []byte
	txLen  atomic.Int32
	txPos  atomic.Int32
	txDone atomic.Bool

	ring *Ring
}

// New binds port, resets both directions and starts the hardware. If the
// port implements InterruptBinder, the driver callbacks are attached.
func New(port Port, cfg Config) *UART {
	def := DefaultConfig()
	if cfg.RxCapacity == 0 {
		cfg.RxCapacity = def.RxCapacity
	}
	if cfg.TxFifoDepth <= 0 {
		cfg.TxFifoDepth = def.TxFifoDepth
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = def.Delimiter
	}
	if cfg.TxReady == 0 {
		cfg.TxReady = def.TxReady
	}
	if cfg.RxReady == 0 {
		cfg.RxReady = def.RxReady
	}

	u := &UART{
		port:    port,
		unit:    cfg.Unit,
		depth:   cfg.TxFifoDepth,
		txReady: cfg.TxReady,
		rxReady: cfg.RxReady,
		timeout: cfg.Timeout,
		ring:    NewRing(cfg.RxCapacity),
	}
	u.tx, _ = port.(Transmitter)
	u.rx, _ = port.(Receiver)
	u.delimiter.Store(uint32(cfg.Delimiter))
	u.mode.Store(uint32(cfg.Mode))
	u.txDone.Store(true)

	port.Start()
	if c, ok := port.(TxClearer); ok {
		c.ClearTxBuffer()
	}
	if c, ok := port.(RxClearer); ok {
		c.ClearRxBuffer()
	}

	if b, ok := port.(InterruptBinder); ok {
		var txISR, rxISR func()
		if u.tx != nil {
			txISR = u.HandleTxInterrupt
		}
		if u.rx != nil {
			rxISR = u.HandleRxInterrupt
		}
		b.BindInterrupts(txISR, rxISR)
	}
	return u
}

// Stop disables the hardware if the port supports it.
func (u *UART) Stop() {
	if s, ok := u.port.(Stopper); ok {
		s.Stop()
	}
}

// SetDelimiter sets the byte that ends a line.
func (u *UART) SetDelimiter(b byte) {
	u.delimiter.Store(uint32(b))
}

// Delimiter returns the line delimiter.
func (u *UART) Delimiter() byte {
	return byte(u.delimiter.Load())
}

// SetMode replaces the mode flags.
func (u *UART) SetMode(m Mode) {
	u.mode.Store(uint32(m))
}

// Mode returns the mode flags.
func (u *UART) Mode() Mode {
	return Mode(u.mode.Load())
}

// Send transmits data.
//
// A transmit already in progress rejects the call with StatusBusy. In
// non-blocking mode the call returns StatusWouldBlock once the first byte is
// queued; poll WriteFinished for completion and keep data unmodified until
// then. Otherwise Send waits until every byte has left the driver and
// returns Completed(len(data)), or TimedOut with the number of bytes handed
// to the hardware so far. Bytes already queued when a timeout fires are not
// recalled; call ClearTxBuffer to discard them.
func (u *UART) Send(data []byte) core.Result {
	return u.send(data, u.Mode()&ModeNonBlockingWrite == 0)
}

func (u *UART) send(data []byte, wait bool) core.Result {
	if u.tx == nil {
		return core.Completed(0)
	}
	if !u.txDone.Load() {
		return core.Busy()
	}
	if len(data) == 0 {
		return core.Completed(0)
	}

	core.RecordEvent(core.EvtTxStart, u.unit, uint32(len(data)), 0)

	// The ready interrupt only fires after the hardware finished something,
	// so the first byte starts the chain. It must be queued before the
	// interrupt can see the transmit as pending.
	st := core.DisableInterrupts()
	u.txBuf = data
	u.txLen.Store(int32(len(data)))
	u.txPos.Store(1)
	u.tx.WriteTxData(data[0])
	u.txDone.Store(false)
	core.RestoreInterrupts(st)

	if !wait {
		return core.WouldBlock(0)
	}

	if !core.WaitUntil(core.NewDeadline(u.timeout), u.txDone.Load) {
		u.txDone.Store(true)
		pos := int(u.txPos.Load())
		core.RecordEvent(core.EvtTxTimeout, u.unit, uint32(pos), uint32(len(data)))
		core.DebugPrintln("[UART" + core.Itoa(int(u.unit)) + "] write timeout after " +
			core.Itoa(pos) + "/" + core.Itoa(len(data)) + " bytes")
		return core.TimedOut(pos)
	}
	return core.Completed(int(u.txPos.Load()))
}

// WriteFinished reports whether no transmit is in progress.
func (u *UART) WriteFinished() bool {
	return u.txDone.Load()
}

// HandleTxInterrupt is the transmit interrupt callback. It queues up to one
// FIFO's worth of the remaining bytes, and marks the transmit finished on
// the first interrupt after the last byte was queued.
func (u *UART) HandleTxInterrupt() {
	if u.tx == nil || u.txDone.Load() {
		return
	}
	if u.tx.ReadTxStatus()&u.txReady == 0 {
		return
	}

	pos, n := int(u.txPos.Load()), int(u.txLen.Load())
	if pos >= n {
		u.txDone.Store(true)
		core.RecordEvent(core.EvtTxDone, u.unit, uint32(pos), 0)
		return
	}

	batch := core.Clamp(n-pos, 0, u.depth)
	for _, b := range u.txBuf[pos : pos+batch] {
		u.tx.WriteTxData(b)
	}
	u.txPos.Store(int32(pos + batch))
}

// HandleRxInterrupt is the receive interrupt callback. It drains the
// hardware receive queue into the ring; bytes that do not fit are dropped
// and the overflow flag is set.
func (u *UART) HandleRxInterrupt() {
	if u.rx == nil {
		return
	}
	for u.rx.ReadRxStatus()&u.rxReady != 0 {
		b := u.rx.ReadRxData()
		if !u.ring.Put(b) {
			core.RecordEvent(core.EvtRxOverflow, u.unit, uint32(b), 0)
		}
	}
}

// ClearTxBuffer discards queued hardware bytes and releases the transmit.
func (u *UART) ClearTxBuffer() {
	if c, ok := u.port.(TxClearer); ok {
		c.ClearTxBuffer()
	}
	u.txDone.Store(true)
	core.RecordEvent(core.EvtTxClear, u.unit, 0, 0)
}

// ClearRxBuffer discards everything received and clears the overflow flag.
// The receive interrupt is left masked or unmasked as it was.
func (u *UART) ClearRxBuffer() {
	if c, ok := u.port.(RxClearer); ok {
		c.ClearRxBuffer()
	}

	var n int
	if m, ok := u.port.(RxMasker); ok {
		on := m.RxInterruptEnabled()
		if on {
			m.DisableRxInterrupt()
		}
		n = u.ring.Reset()
		if on {
			m.EnableRxInterrupt()
		}
	} else {
		st := core.DisableInterrupts()
		n = u.ring.Reset()
		core.RestoreInterrupts(st)
	}
	core.RecordEvent(core.EvtRxClear, u.unit, uint32(n), 0)
}
