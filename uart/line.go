package uart

import "serio/core"

// LineBuffer assembles one line across Gets calls that time out, so a pause
// in the middle of a line does not lose what already arrived.
type LineBuffer struct {
	buf []byte
	n   int
}

// NewLineBuffer holds lines of up to size-1 bytes.
func NewLineBuffer(size int) *LineBuffer {
	return &LineBuffer{buf: make([]byte, max(size, 2))}
}

// Next waits for the rest of the current line. On timeout the bytes
// received so far are kept and N counts all of them. On completion it
// returns the line, delimiter included unless the buffer filled first, and
// starts a new one; the slice is valid until the next call.
func (l *LineBuffer) Next(u *UART) ([]byte, core.Result) {
	r := u.Gets(l.buf[l.n:])
	l.n += r.N
	if r.Status != core.StatusCompleted {
		return nil, core.Result{Status: r.Status, N: l.n}
	}
	line := l.buf[:l.n]
	l.n = 0
	return line, core.Completed(len(line))
}

// Len returns the number of bytes of the pending partial line.
func (l *LineBuffer) Len() int {
	return l.n
}

// Reset drops the pending partial line.
func (l *LineBuffer) Reset() {
	l.n = 0
}
