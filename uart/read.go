package uart

import "serio/core"

// Buffered returns the number of received bytes waiting in the ring.
func (u *UART) Buffered() int {
	return u.ring.Len()
}

// Readable reports whether at least one received byte is waiting.
func (u *UART) Readable() bool {
	return u.ring.Len() > 0
}

// Overflowed reports whether the ring dropped received data since the last
// ClearRxBuffer.
func (u *UART) Overflowed() bool {
	return u.ring.Overflowed()
}

// Recv waits for at least one byte, then copies up to len(p) bytes that are
// already buffered. The timeout applies only to the wait for the first
// byte; a timeout leaves the ring untouched.
func (u *UART) Recv(p []byte) core.Result {
	if len(p) == 0 || u.rx == nil {
		return core.Completed(0)
	}
	if !core.WaitUntil(core.NewDeadline(u.timeout), u.Readable) {
		return core.TimedOut(0)
	}
	return core.Completed(u.ring.Read(p))
}

// RecvFull calls Recv until p is full. On error N holds the bytes collected.
func (u *UART) RecvFull(p []byte) core.Result {
	if u.rx == nil {
		return core.Completed(0)
	}
	n := 0
	for n < len(p) {
		r := u.Recv(p[n:])
		n += r.N
		if !r.OK() {
			return core.Result{Status: r.Status, N: n}
		}
	}
	return core.Completed(n)
}

// TryRecv copies whatever is buffered, up to len(p), without waiting.
func (u *UART) TryRecv(p []byte) int {
	return u.ring.Read(p)
}

// Getc waits for one byte.
func (u *UART) Getc() (byte, core.Result) {
	var b [1]byte
	r := u.Recv(b[:])
	return b[0], r
}

// Putc transmits one byte.
func (u *UART) Putc(b byte) core.Result {
	return u.Send([]byte{b})
}

// Puts transmits s.
func (u *UART) Puts(s string) core.Result {
	return u.Send([]byte(s))
}

// Gets reads one line into p. It copies bytes until the delimiter has been
// copied or len(p)-1 bytes are in p, waiting for more data as needed, and
// always leaves a NUL after the copied bytes. N counts the copied bytes,
// delimiter included. On timeout the bytes copied so far stay in p.
func (u *UART) Gets(p []byte) core.Result {
	if len(p) == 0 {
		return core.Completed(0)
	}
	if u.rx == nil {
		p[0] = 0
		return core.Completed(0)
	}

	d := core.NewDeadline(u.timeout)
	delim := u.Delimiter()
	n := 0
	for n < len(p)-1 {
		b, ok := u.ring.Get()
		if !ok {
			if d.Expired() {
				p[n] = 0
				return core.TimedOut(n)
			}
			core.Idle()
			continue
		}
		p[n] = b
		n++
		if b == delim {
			break
		}
	}
	p[n] = 0
	return core.Completed(n)
}

// CanReadLine reports the length of the first buffered line, delimiter
// included, or 0 when no complete line is buffered. After an overflow the
// delimiter may have been dropped, so it returns StatusOverflow until
// ClearRxBuffer.
func (u *UART) CanReadLine() core.Result {
	if u.ring.Overflowed() {
		return core.Overflowed()
	}
	return core.Completed(u.ring.IndexByte(u.Delimiter()))
}

// ReadAvailable returns exactly n bytes if that many are buffered, and
// StatusWouldBlock otherwise. It never waits.
func (u *UART) ReadAvailable(n int) ([]byte, core.Result) {
	if n <= 0 {
		return nil, core.Completed(0)
	}
	if u.ring.Len() < n {
		return nil, core.WouldBlock(0)
	}
	buf := make([]byte, n)
	return buf, core.Completed(u.ring.Read(buf))
}

// ReadLine returns the first buffered line, delimiter included, if one is
// complete. It never waits.
func (u *UART) ReadLine() ([]byte, core.Result) {
	r := u.CanReadLine()
	if !r.OK() {
		return nil, r
	}
	if r.N == 0 {
		return nil, core.WouldBlock(0)
	}
	buf := make([]byte, r.N+1)
	g := u.Gets(buf)
	return buf[:g.N], g
}
