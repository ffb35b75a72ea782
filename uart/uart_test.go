package uart

import (
	"testing"
	"time"

	"serio/core"
	"serio/internal/fakehw"
)

func newTestUART(t *testing.T, cfg Config) (*UART, *fakehw.UART) {
	t.Helper()
	f := fakehw.NewUART(DefaultTxFifoDepth)
	u := New(f, cfg)
	return u, f
}

func TestNewResetsHardware(t *testing.T) {
	u, f := newTestUART(t, Config{})

	tx, rx := f.Clears()
	if tx != 1 || rx != 1 {
		t.Errorf("Expected one clear per direction at construction, got tx=%d rx=%d", tx, rx)
	}
	if !u.WriteFinished() {
		t.Error("New UART should be idle")
	}
	if u.Delimiter() != '\n' {
		t.Errorf("Expected default delimiter '\\n', got %q", u.Delimiter())
	}
	if u.ring.Cap() != DefaultRxCapacity {
		t.Errorf("Expected ring capacity %d, got %d", DefaultRxCapacity, u.ring.Cap())
	}
	if !f.TxLine.Enabled() || !f.RxLine.Enabled() {
		t.Error("Expected both interrupt lines bound and enabled")
	}
}

func TestSendBlocking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	u, f := newTestUART(t, cfg)
	f.IRQ.Start()
	defer f.IRQ.Close()

	msg := []byte("hello, world")
	r := u.Send(msg)
	if r != core.Completed(len(msg)) {
		t.Fatalf("Expected %v, got %v", core.Completed(len(msg)), r)
	}
	if got := string(f.Wire()); got != string(msg) {
		t.Errorf("Expected %q on the wire, got %q", msg, got)
	}
	if !u.WriteFinished() {
		t.Error("Transmit not marked finished")
	}
	if f.Overruns() != 0 {
		t.Errorf("Interrupt overfilled the transmit FIFO %d times", f.Overruns())
	}
}

func TestSendNonBlocking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeNonBlockingWrite
	u, f := newTestUART(t, cfg)

	r := u.Send([]byte("abcdefghij"))
	if r.Status != core.StatusWouldBlock || r.N != 0 {
		t.Fatalf("Expected would-block(0), got %v", r)
	}
	if u.WriteFinished() {
		t.Fatal("Transmit finished before any interrupt ran")
	}
	if r := u.Send([]byte("x")); r.Status != core.StatusBusy {
		t.Errorf("Expected busy while a transmit is pending, got %v", r)
	}

	f.IRQ.Drain()

	if !u.WriteFinished() {
		t.Error("Transmit not finished after draining")
	}
	if got := string(f.Wire()); got != "abcdefghij" {
		t.Errorf("Expected %q on the wire, got %q", "abcdefghij", got)
	}
}

func TestSendZeroLength(t *testing.T) {
	u, f := newTestUART(t, Config{})

	if r := u.Send(nil); r != core.Completed(0) {
		t.Errorf("Expected completed(0), got %v", r)
	}
	if !u.WriteFinished() {
		t.Error("Zero-length send changed transmit state")
	}
	if len(f.Wire()) != 0 {
		t.Errorf("Zero-length send wrote %q", f.Wire())
	}
}

func TestSendTimeoutReleasesHandle(t *testing.T) {
	core.ClearEvents()
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	u, f := newTestUART(t, cfg)
	f.Stall(true)
	f.IRQ.Start()
	defer f.IRQ.Close()

	r := u.Send([]byte("abc"))
	if r.Status != core.StatusTimedOut || r.N != 1 {
		t.Fatalf("Expected timed-out(1), got %v", r)
	}
	if r.Err() != core.ErrTimeout {
		t.Errorf("Expected ErrTimeout, got %v", r.Err())
	}
	if !u.WriteFinished() {
		t.Fatal("Timed out transmit still marked in progress")
	}

	found := false
	for _, evt := range core.Events() {
		if evt.Kind == core.EvtTxTimeout && evt.Value1 == 1 && evt.Value2 == 3 {
			found = true
		}
	}
	if !found {
		t.Error("Expected a TX_TIMEOUT event")
	}

	// Drop the stuck byte, then the handle must accept a new transmit.
	u.ClearTxBuffer()
	f.Stall(false)

	if r := u.Send([]byte("xyz")); r != core.Completed(3) {
		t.Fatalf("Expected completed(3) after timeout, got %v", r)
	}
	if got := string(f.Wire()); got != "xyz" {
		t.Errorf("Expected %q on the wire, got %q", "xyz", got)
	}
}

func TestTxInterruptIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeNonBlockingWrite
	u, f := newTestUART(t, cfg)

	u.Send([]byte("abcdef"))

	// The first byte is still in the FIFO, so the status is not ready and
	// a spurious interrupt must not queue anything.
	u.HandleTxInterrupt()
	if pos := u.txPos.Load(); pos != 1 {
		t.Fatalf("Spurious interrupt advanced the cursor to %d", pos)
	}

	f.IRQ.Drain()
	if !u.WriteFinished() {
		t.Fatal("Transmit not finished")
	}

	for i := 0; i < 3; i++ {
		u.HandleTxInterrupt()
	}
	f.IRQ.Drain()

	if pos := u.txPos.Load(); pos != 6 {
		t.Errorf("Extra interrupts moved the cursor to %d", pos)
	}
	if got := string(f.Wire()); got != "abcdef" {
		t.Errorf("Extra interrupts changed the wire to %q", got)
	}
}

func TestTxBatchFollowsFifoDepth(t *testing.T) {
	for _, depth := range []int{1, 4} {
		f := fakehw.NewUART(depth)
		u := New(f, Config{TxFifoDepth: depth, Mode: ModeNonBlockingWrite})

		msg := "the quick brown fox"
		u.Send([]byte(msg))
		f.IRQ.Drain()

		if got := string(f.Wire()); got != msg {
			t.Errorf("depth %d: expected %q, got %q", depth, msg, got)
		}
		if f.Overruns() != 0 {
			t.Errorf("depth %d: %d bytes written to a full FIFO", depth, f.Overruns())
		}
	}
}

func TestRxInterruptFillsRing(t *testing.T) {
	u, f := newTestUART(t, Config{})

	f.Inject([]byte("hello"))
	f.IRQ.Drain()

	if u.Buffered() != 5 {
		t.Fatalf("Expected 5 bytes buffered, got %d", u.Buffered())
	}
	buf := make([]byte, 8)
	if n := u.TryRecv(buf); string(buf[:n]) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", buf[:n])
	}
	if u.Readable() {
		t.Error("Ring should be empty after reading everything")
	}
}

func TestRxOverflowKeepsOldest(t *testing.T) {
	core.ClearEvents()
	u, f := newTestUART(t, Config{RxCapacity: 8})

	f.Inject([]byte("0123456789ab"))
	f.IRQ.Drain()

	if u.Buffered() != 7 {
		t.Errorf("Expected 7 bytes buffered, got %d", u.Buffered())
	}
	if !u.Overflowed() {
		t.Error("Expected overflow flag")
	}
	if r := u.CanReadLine(); r.Status != core.StatusOverflow {
		t.Errorf("Expected CanReadLine to report overflow, got %v", r)
	}

	buf := make([]byte, 16)
	if n := u.TryRecv(buf); string(buf[:n]) != "0123456" {
		t.Errorf("Expected the first 7 bytes, got %q", buf[:n])
	}

	overflows := 0
	for _, evt := range core.Events() {
		if evt.Kind == core.EvtRxOverflow {
			overflows++
		}
	}
	if overflows != 5 {
		t.Errorf("Expected 5 overflow events, got %d", overflows)
	}

	u.ClearRxBuffer()
	if u.Overflowed() || u.Buffered() != 0 {
		t.Errorf("ClearRxBuffer left overflow=%v buffered=%d", u.Overflowed(), u.Buffered())
	}
	if !f.RxLine.Enabled() {
		t.Error("Receive interrupt left masked after clear")
	}
	if _, rx := f.Clears(); rx != 2 {
		t.Errorf("Expected hardware receive clear, count %d", rx)
	}
}

func TestClearRxKeepsMaskState(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("ab"))
	f.IRQ.Drain()

	f.RxLine.Disable()
	u.ClearRxBuffer()
	if f.RxLine.Enabled() {
		t.Error("ClearRxBuffer unmasked a receive interrupt that was masked")
	}
	if u.Buffered() != 0 {
		t.Errorf("Expected empty ring, got %d bytes", u.Buffered())
	}
}

func TestTransmitOnlyPort(t *testing.T) {
	f := fakehw.NewUART(DefaultTxFifoDepth)
	u := New(f.TxOnly(), Config{Mode: ModeNonBlockingWrite})

	u.Send([]byte("ping"))
	f.Inject([]byte("ignored\n"))
	f.IRQ.Drain()

	if got := string(f.Wire()); got != "ping" {
		t.Errorf("Expected %q, got %q", "ping", got)
	}

	u.HandleRxInterrupt()
	if u.Buffered() != 0 {
		t.Errorf("Transmit-only UART buffered %d bytes", u.Buffered())
	}
	if r := u.Recv(make([]byte, 4)); r != core.Completed(0) {
		t.Errorf("Expected Recv to be a no-op, got %v", r)
	}
	line := []byte{'x', 'x'}
	if r := u.Gets(line); r != core.Completed(0) || line[0] != 0 {
		t.Errorf("Expected empty terminated line, got %v %q", r, line)
	}
	if _, err := u.Read(make([]byte, 1)); err != core.ErrUnsupported {
		t.Errorf("Expected ErrUnsupported from Read, got %v", err)
	}
}

func TestReceiveOnlyPort(t *testing.T) {
	f := fakehw.NewUART(DefaultTxFifoDepth)
	u := New(f.RxOnly(), Config{})

	if r := u.Send([]byte("nope")); r != core.Completed(0) {
		t.Errorf("Expected Send to be a no-op, got %v", r)
	}
	if _, err := u.Write([]byte("nope")); err != core.ErrUnsupported {
		t.Errorf("Expected ErrUnsupported from Write, got %v", err)
	}

	f.Inject([]byte("data\n"))
	f.IRQ.Drain()
	if r := u.CanReadLine(); r != core.Completed(5) {
		t.Errorf("Expected a 5 byte line, got %v", r)
	}

	// No RxMasker on this port: the reset falls back to a critical section.
	u.ClearRxBuffer()
	if u.Buffered() != 0 {
		t.Errorf("Expected empty ring after clear, got %d", u.Buffered())
	}
	if len(f.Wire()) != 0 {
		t.Errorf("Receive-only UART transmitted %q", f.Wire())
	}
}

func TestModeAndDelimiter(t *testing.T) {
	u, _ := newTestUART(t, Config{Delimiter: ';', Mode: ModeNonBlockingWrite})

	if u.Delimiter() != ';' {
		t.Errorf("Expected delimiter ';', got %q", u.Delimiter())
	}
	if u.Mode() != ModeNonBlockingWrite {
		t.Errorf("Expected non-blocking mode, got %#x", u.Mode())
	}

	u.SetDelimiter(0)
	u.SetMode(0)
	if u.Delimiter() != 0 || u.Mode() != 0 {
		t.Errorf("Setters not applied: delimiter=%q mode=%#x", u.Delimiter(), u.Mode())
	}
}
