package spi

import (
	"sync/atomic"
	"time"

	"serio/core"
)

// Defaults for Config fields left zero.
const (
	DefaultIdleStatus = 0x10
	DefaultFifoDepth  = 4
)

// Config describes one SPI master instance.
type Config struct {
	// Unit tags debug events with the instance number.
	Unit uint8

	// IdleStatus is the ReadTxStatus bit set while no transfer is active.
	IdleStatus uint8

	// FifoDepth is how many bytes Transfer queues before handing over to the
	// transmit interrupt.
	FifoDepth int

	// Timeout bounds the idle waits of Transfer and WaitDone. Zero waits
	// forever.
	Timeout time.Duration
}

// DefaultConfig returns the configuration of a PSoC-style SPI master.
func DefaultConfig() Config {
	return Config{
		IdleStatus: DefaultIdleStatus,
		FifoDepth:  DefaultFifoDepth,
	}
}

// Engine runs one full-duplex transfer at a time over a Port.
//
// Transfer programs the counters with both interrupt sources masked; after
// that only HandleTxInterrupt advances sent and only HandleRxInterrupt
// advances received, until the hardware reports idle.
type Engine struct {
	port    Port
	unit    uint8
	idle    uint8
	depth   int
	timeout time.Duration

	send      []byte
	sendTotal atomic.Int32
	sent      atomic.Int32

	recv     []byte
	recvLen  atomic.Int32
	received atomic.Int32 // negative while send-phase bytes are discarded
}

// New binds port and starts it. If the port implements InterruptBinder,
// the engine callbacks are attached.
func New(port Port, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.IdleStatus == 0 {
		cfg.IdleStatus = def.IdleStatus
	}
	if cfg.FifoDepth <= 0 {
		cfg.FifoDepth = def.FifoDepth
	}
	e := &Engine{
		port:    port,
		unit:    cfg.Unit,
		idle:    cfg.IdleStatus,
		depth:   cfg.FifoDepth,
		timeout: cfg.Timeout,
	}
	port.Start()
	if b, ok := port.(InterruptBinder); ok {
		b.BindInterrupts(e.HandleTxInterrupt, e.HandleRxInterrupt)
	}
	return e
}

// IsTransferring reports whether the hardware is still busy.
func (e *Engine) IsTransferring() bool {
	return e.port.ReadTxStatus()&e.idle == 0
}

func (e *Engine) isIdle() bool {
	return !e.IsTransferring()
}

// WaitDone waits until the hardware is idle.
func (e *Engine) WaitDone() core.Result {
	if !core.WaitUntil(core.NewDeadline(e.timeout), e.isIdle) {
		core.RecordEvent(core.EvtSpiTimeout, e.unit, uint32(e.sent.Load()), uint32(e.sendTotal.Load()))
		core.DebugAsync("[SPI" + core.Itoa(int(e.unit)) + "] wait timeout")
		return core.TimedOut(int(e.sent.Load()))
	}
	return core.Completed(int(e.sent.Load()))
}

// Transfer starts clocking send out and recv in, and returns once the
// transmit FIFO is primed; call WaitDone before touching the buffers.
//
// With include set, receive shares the clock edges of send and the
// transfer clocks max(len(send), len(recv)) bytes, zero padded. Otherwise
// send goes out first and len(recv) zero bytes follow to clock the reply;
// bytes received while send goes out are discarded. A nil recv receives
// nothing.
//
// Transfer first waits for the previous transfer to finish. If that wait
// times out nothing is reprogrammed and the result is TimedOut. Otherwise
// N is the number of bytes that will be clocked.
func (e *Engine) Transfer(send, recv []byte, include bool) core.Result {
	if !core.WaitUntil(core.NewDeadline(e.timeout), e.isIdle) {
		core.RecordEvent(core.EvtSpiTimeout, e.unit, 0, 0)
		return core.TimedOut(0)
	}

	e.port.DisableTxInterrupt()
	e.port.DisableRxInterrupt()
	e.port.ClearFIFO()

	sendLen, recvLen := len(send), len(recv)
	if recv == nil {
		recvLen = 0
	}
	total := sendLen + recvLen
	bias := -sendLen
	if include {
		total = max(sendLen, recvLen)
		bias = 0
	}

	e.send = send
	e.recv = recv
	e.sendTotal.Store(int32(total))
	e.recvLen.Store(int32(recvLen))
	e.received.Store(int32(bias))

	primed := core.Clamp(total, 0, e.depth)
	for i := 0; i < primed; i++ {
		if i < sendLen {
			e.port.WriteTxData(send[i])
		} else {
			e.port.WriteTxData(0)
		}
	}
	e.sent.Store(int32(primed))
	core.RecordEvent(core.EvtSpiStart, e.unit, uint32(total), uint32(primed))

	e.port.EnableTxInterrupt()
	e.port.EnableRxInterrupt()
	return core.Completed(total)
}

// Exchange runs Transfer and waits for it to finish.
func (e *Engine) Exchange(send, recv []byte, include bool) core.Result {
	r := e.Transfer(send, recv, include)
	if !r.OK() {
		return r
	}
	if w := e.WaitDone(); !w.OK() {
		return w
	}
	return r
}

// HandleTxInterrupt is the transmit interrupt callback. It queues one
// payload byte, or one zero byte during the receive padding, and does
// nothing once every byte of the transfer has been queued.
func (e *Engine) HandleTxInterrupt() {
	sent := int(e.sent.Load())
	switch {
	case sent < len(e.send) && sent < int(e.sendTotal.Load()):
		e.port.WriteTxData(e.send[sent])
	case sent < int(e.sendTotal.Load()):
		e.port.WriteTxData(0)
	default:
		return
	}
	e.sent.Store(int32(sent + 1))
}

// HandleRxInterrupt is the receive interrupt callback. It drains the
// receive FIFO, storing the bytes that belong to the receive window.
func (e *Engine) HandleRxInterrupt() {
	for e.port.RxBufferSize() != 0 {
		b := e.port.ReadRxData()
		n := e.received.Load()
		if n >= 0 && n < e.recvLen.Load() {
			e.recv[n] = b
		}
		e.received.Store(n + 1)
	}
}
