package serial

import (
	"errors"
	"io"
	"sync"

	"serio/host/hostlog"
	"serio/internal/irqsim"
)

// Status bits reported by Hardware, matching uart.DefaultTxReady and
// uart.DefaultRxReady.
const (
	TxReady = 0x01
	RxReady = 0x20
)

// DefaultRxFifo is the receive queue size used when NewHardware is given
// zero.
const DefaultRxFifo = 4096

// Hardware presents a host serial port as an interrupt-driven UART
// peripheral. A reader goroutine fills a receive queue that raises a
// level-triggered receive interrupt; a writer goroutine drains the transmit
// queue to the port and raises the transmit interrupt once it is empty.
//
// Hardware satisfies the uart port interfaces, including InterruptBinder,
// so uart.New wires it up and starts it.
type Hardware struct {
	port   Port
	IRQ    *irqsim.Controller
	txLine *irqsim.Line
	rxLine *irqsim.Line

	mu      sync.Mutex
	txFifo  []byte
	writing bool
	rxFifo  []byte
	rxMax   int
	dropped int
	err     error
	started bool
	stopped bool

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewHardware wraps port. rxFifo bounds the receive queue; bytes arriving
// while it is full are dropped and counted.
func NewHardware(port Port, rxFifo int) *Hardware {
	if rxFifo <= 0 {
		rxFifo = DefaultRxFifo
	}
	h := &Hardware{
		port:  port,
		IRQ:   irqsim.New(),
		rxMax: rxFifo,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
	h.txLine = h.IRQ.NewLine("serial-tx", nil)
	h.rxLine = h.IRQ.NewLine("serial-rx", h.rxPending)
	return h
}

func (h *Hardware) rxPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rxFifo) > 0
}

// Start launches the port goroutines and interrupt delivery. Calling it
// again has no effect; a stopped Hardware cannot be restarted.
func (h *Hardware) Start() {
	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	h.IRQ.Start()
	h.wg.Add(2)
	go h.readLoop()
	go h.writeLoop()
	hostlog.Debug(hostlog.ComponentSerial, "hardware started")
}

// Stop halts interrupt delivery and the writer. The reader exits after its
// current Read returns; Close also closes the port to unblock it.
func (h *Hardware) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	h.IRQ.Close()
}

// Close stops the hardware, closes the port and waits for the goroutines.
func (h *Hardware) Close() error {
	h.Stop()
	err := h.port.Close()
	h.wg.Wait()
	return err
}

// Err returns the first port error seen by the goroutines.
func (h *Hardware) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Dropped returns how many received bytes were lost to a full queue.
func (h *Hardware) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hardware) stopping() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

func (h *Hardware) fail(err error) {
	h.mu.Lock()
	if h.err == nil && !h.stopped {
		h.err = err
		hostlog.Error(hostlog.ComponentSerial, "port failed", "error", err)
	}
	h.mu.Unlock()
}

func (h *Hardware) readLoop() {
	defer h.wg.Done()
	buf := make([]byte, 256)
	for {
		n, err := h.port.Read(buf)
		if n > 0 {
			h.mu.Lock()
			room := h.rxMax - len(h.rxFifo)
			if n > room {
				h.dropped += n - room
				n = room
			}
			h.rxFifo = append(h.rxFifo, buf[:n]...)
			h.mu.Unlock()
			h.IRQ.Kick()
		}
		if h.stopping() {
			return
		}
		// a read timeout shows up as (0, nil) or io.EOF depending on the
		// platform
		if err != nil && !errors.Is(err, io.EOF) {
			h.fail(err)
			return
		}
	}
}

func (h *Hardware) writeLoop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.wake:
		case <-h.stop:
			return
		}

		for {
			h.mu.Lock()
			if len(h.txFifo) == 0 {
				h.mu.Unlock()
				break
			}
			chunk := h.txFifo
			h.txFifo = nil
			h.writing = true
			h.mu.Unlock()

			_, err := h.port.Write(chunk)

			h.mu.Lock()
			h.writing = false
			h.mu.Unlock()
			if err != nil {
				h.fail(err)
			}
		}
		h.txLine.Raise()
	}
}

// ReadTxStatus reports TxReady once every queued byte reached the port.
func (h *Hardware) ReadTxStatus() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.txFifo) == 0 && !h.writing {
		return TxReady
	}
	return 0
}

// WriteTxData queues b for the writer. It never blocks, so it is safe from
// the transmit interrupt.
func (h *Hardware) WriteTxData(b byte) {
	h.mu.Lock()
	h.txFifo = append(h.txFifo, b)
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// ReadRxStatus reports RxReady while received bytes are queued.
func (h *Hardware) ReadRxStatus() uint8 {
	if h.rxPending() {
		return RxReady
	}
	return 0
}

// ReadRxData pops the oldest received byte, or 0 if none.
func (h *Hardware) ReadRxData() byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.rxFifo) == 0 {
		return 0
	}
	b := h.rxFifo[0]
	h.rxFifo = h.rxFifo[1:]
	return b
}

// ClearTxBuffer drops bytes not yet handed to the port.
func (h *Hardware) ClearTxBuffer() {
	h.mu.Lock()
	h.txFifo = nil
	h.mu.Unlock()
}

// ClearRxBuffer drops bytes received but not yet read by the driver. The
// port is not flushed: an OS flush also discards output the writer has
// already handed over.
func (h *Hardware) ClearRxBuffer() {
	h.mu.Lock()
	h.rxFifo = nil
	h.mu.Unlock()
}

// DisableRxInterrupt masks the receive interrupt.
func (h *Hardware) DisableRxInterrupt() { h.rxLine.Disable() }

// EnableRxInterrupt unmasks the receive interrupt.
func (h *Hardware) EnableRxInterrupt() { h.rxLine.Enable() }

// RxInterruptEnabled reports whether the receive interrupt is unmasked.
func (h *Hardware) RxInterruptEnabled() bool { return h.rxLine.Enabled() }

// BindInterrupts attaches the driver callbacks and unmasks their lines.
func (h *Hardware) BindInterrupts(tx, rx func()) {
	h.txLine.SetHandler(tx)
	h.rxLine.SetHandler(rx)
	if tx != nil {
		h.txLine.Enable()
	}
	if rx != nil {
		h.rxLine.Enable()
	}
}
