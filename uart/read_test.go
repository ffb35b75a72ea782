package uart

import (
	"testing"
	"time"

	"serio/core"
)

func TestLineFraming(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("AB\nCD"))
	f.IRQ.Drain()

	if r := u.CanReadLine(); r != core.Completed(3) {
		t.Fatalf("Expected CanReadLine = completed(3), got %v", r)
	}

	buf := make([]byte, 8)
	r := u.Gets(buf)
	if r != core.Completed(3) {
		t.Fatalf("Expected Gets = completed(3), got %v", r)
	}
	if string(buf[:4]) != "AB\n\x00" {
		t.Errorf("Expected %q, got %q", "AB\n\x00", buf[:4])
	}

	if u.Buffered() != 2 {
		t.Errorf("Expected 2 bytes left, got %d", u.Buffered())
	}
	if r := u.CanReadLine(); r != core.Completed(0) {
		t.Errorf("Expected no complete line, got %v", r)
	}
	rest := make([]byte, 4)
	if n := u.TryRecv(rest); string(rest[:n]) != "CD" {
		t.Errorf("Expected %q left in the ring, got %q", "CD", rest[:n])
	}
}

func TestGetsStopsAtCapacity(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("abcdefgh\n"))
	f.IRQ.Drain()

	buf := make([]byte, 4)
	if r := u.Gets(buf); r != core.Completed(3) {
		t.Fatalf("Expected completed(3), got %v", r)
	}
	if string(buf) != "abc\x00" {
		t.Errorf("Expected %q, got %q", "abc\x00", buf)
	}
	if u.Buffered() != 6 {
		t.Errorf("Expected 6 bytes left, got %d", u.Buffered())
	}
}

func TestGetsSmallBuffers(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("z\n"))
	f.IRQ.Drain()

	if r := u.Gets(nil); r != core.Completed(0) {
		t.Errorf("Expected completed(0) for an empty buffer, got %v", r)
	}

	one := []byte{'?'}
	if r := u.Gets(one); r != core.Completed(0) || one[0] != 0 {
		t.Errorf("Expected terminator only, got %v %q", r, one)
	}
	if u.Buffered() != 2 {
		t.Errorf("Small buffers consumed data, %d bytes left", u.Buffered())
	}
}

func TestGetsTimeoutKeepsPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	u, f := newTestUART(t, cfg)
	f.Inject([]byte("par"))
	f.IRQ.Drain()

	buf := make([]byte, 16)
	r := u.Gets(buf)
	if r.Status != core.StatusTimedOut || r.N != 3 {
		t.Fatalf("Expected timed-out(3), got %v", r)
	}
	if string(buf[:4]) != "par\x00" {
		t.Errorf("Expected %q, got %q", "par\x00", buf[:4])
	}
}

func TestRecvTimeoutLeavesRingUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	u, f := newTestUART(t, cfg)

	// Move the indices away from zero first.
	f.Inject([]byte("xy"))
	f.IRQ.Drain()
	u.TryRecv(make([]byte, 2))
	rd, wr := u.ring.rd.Load(), u.ring.wr.Load()

	r := u.Recv(make([]byte, 4))
	if r.Status != core.StatusTimedOut || r.N != 0 {
		t.Fatalf("Expected timed-out(0), got %v", r)
	}
	if u.ring.rd.Load() != rd || u.ring.wr.Load() != wr {
		t.Errorf("Timeout moved the ring indices")
	}
	if u.Overflowed() {
		t.Error("Timeout set the overflow flag")
	}
}

func TestRecvDrainsWhatIsAvailable(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("abc"))
	f.IRQ.Drain()

	buf := make([]byte, 8)
	r := u.Recv(buf)
	if r != core.Completed(3) || string(buf[:3]) != "abc" {
		t.Errorf("Expected completed(3) %q, got %v %q", "abc", r, buf[:r.N])
	}
	if r := u.Recv(nil); r != core.Completed(0) {
		t.Errorf("Expected completed(0) for an empty buffer, got %v", r)
	}
}

func TestRecvWaitsForFirstByte(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	u, f := newTestUART(t, cfg)
	f.IRQ.Start()
	defer f.IRQ.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Inject([]byte("z"))
	}()

	b, r := u.Getc()
	if r != core.Completed(1) || b != 'z' {
		t.Errorf("Expected 'z', got %q %v", b, r)
	}
}

func TestRecvFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	u, f := newTestUART(t, cfg)
	f.IRQ.Start()
	defer f.IRQ.Close()

	f.Inject([]byte("ab"))
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Inject([]byte("cde"))
	}()

	buf := make([]byte, 5)
	if r := u.RecvFull(buf); r != core.Completed(5) || string(buf) != "abcde" {
		t.Errorf("Expected completed(5) %q, got %v %q", "abcde", r, buf)
	}
}

func TestRecvFullTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	u, f := newTestUART(t, cfg)
	f.Inject([]byte("ab"))
	f.IRQ.Drain()

	buf := make([]byte, 4)
	r := u.RecvFull(buf)
	if r.Status != core.StatusTimedOut || r.N != 2 {
		t.Errorf("Expected timed-out(2), got %v", r)
	}
	if string(buf[:2]) != "ab" {
		t.Errorf("Expected partial data %q, got %q", "ab", buf[:2])
	}
}

func TestReadAvailable(t *testing.T) {
	u, f := newTestUART(t, Config{})
	f.Inject([]byte("abc"))
	f.IRQ.Drain()

	if data, r := u.ReadAvailable(4); data != nil || r.Status != core.StatusWouldBlock {
		t.Errorf("Expected would-block for 4 of 3 bytes, got %v %q", r, data)
	}
	data, r := u.ReadAvailable(2)
	if r != core.Completed(2) || string(data) != "ab" {
		t.Errorf("Expected %q, got %v %q", "ab", r, data)
	}
}

func TestReadLine(t *testing.T) {
	u, f := newTestUART(t, Config{RxCapacity: 8})

	if line, r := u.ReadLine(); line != nil || r.Status != core.StatusWouldBlock {
		t.Errorf("Expected would-block on an empty ring, got %v %q", r, line)
	}

	f.Inject([]byte("ok\r\n"))
	f.IRQ.Drain()
	line, r := u.ReadLine()
	if r != core.Completed(4) || string(line) != "ok\r\n" {
		t.Errorf("Expected %q, got %v %q", "ok\r\n", r, line)
	}

	f.Inject([]byte("0123456789"))
	f.IRQ.Drain()
	if _, r := u.ReadLine(); r.Status != core.StatusOverflow || r.Err() != core.ErrOverflow {
		t.Errorf("Expected overflow, got %v", r)
	}
}

func TestCustomDelimiter(t *testing.T) {
	u, f := newTestUART(t, Config{})
	u.SetDelimiter(';')
	f.Inject([]byte("a;b\n"))
	f.IRQ.Drain()

	if r := u.CanReadLine(); r != core.Completed(2) {
		t.Errorf("Expected a 2 byte line, got %v", r)
	}
}

func TestPutsGetsLoopback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	u, f := newTestUART(t, cfg)
	f.SetLoopback(true)
	f.IRQ.Start()
	defer f.IRQ.Close()

	if r := u.Puts("hi\n"); r != core.Completed(3) {
		t.Fatalf("Expected completed(3), got %v", r)
	}
	if r := u.Putc('!'); r != core.Completed(1) {
		t.Fatalf("Expected completed(1), got %v", r)
	}

	buf := make([]byte, 8)
	if r := u.Gets(buf); r != core.Completed(3) || string(buf[:3]) != "hi\n" {
		t.Errorf("Expected %q, got %v %q", "hi\n", r, buf[:r.N])
	}
	if b, r := u.Getc(); r != core.Completed(1) || b != '!' {
		t.Errorf("Expected '!', got %q %v", b, r)
	}
}

func TestLineBufferKeepsPrefixAcrossTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	u, f := newTestUART(t, cfg)
	lb := NewLineBuffer(16)

	f.Inject([]byte("hel"))
	f.IRQ.Drain()
	if line, r := lb.Next(u); r != core.TimedOut(3) || line != nil {
		t.Fatalf("Expected timed-out(3) and no line, got %v %q", r, line)
	}
	if lb.Len() != 3 {
		t.Errorf("Expected 3 pending bytes, got %d", lb.Len())
	}

	f.Inject([]byte("lo\nnext"))
	f.IRQ.Drain()
	line, r := lb.Next(u)
	if r != core.Completed(6) || string(line) != "hello\n" {
		t.Fatalf("Expected completed(6) %q, got %v %q", "hello\n", r, line)
	}
	if lb.Len() != 0 || u.Buffered() != 4 {
		t.Errorf("Expected a fresh line and 4 bytes buffered, got pending=%d buffered=%d", lb.Len(), u.Buffered())
	}
}

func TestLineBufferFull(t *testing.T) {
	u, f := newTestUART(t, Config{})
	lb := NewLineBuffer(4)

	f.Inject([]byte("abcdef\n"))
	f.IRQ.Drain()
	if line, r := lb.Next(u); r != core.Completed(3) || string(line) != "abc" {
		t.Fatalf("Expected completed(3) %q, got %v %q", "abc", r, line)
	}
	if line, r := lb.Next(u); r != core.Completed(3) || string(line) != "def" {
		t.Fatalf("Expected completed(3) %q, got %v %q", "def", r, line)
	}
}
