package uart

import (
	"tinygo.org/x/drivers"

	"serio/core"
)

var _ drivers.UART = (*UART)(nil)

// Read implements io.Reader on top of Recv.
func (u *UART) Read(p []byte) (int, error) {
	if u.rx == nil {
		return 0, core.ErrUnsupported
	}
	r := u.Recv(p)
	return r.N, r.Err()
}

// Write implements io.Writer. It waits for any transmit in progress, then
// sends p and waits for it to finish regardless of the mode flags.
func (u *UART) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if u.tx == nil {
		return 0, core.ErrUnsupported
	}
	if !core.WaitUntil(core.NewDeadline(u.timeout), u.WriteFinished) {
		return 0, core.ErrTimeout
	}
	r := u.send(p, true)
	return r.N, r.Err()
}

// WriteByte sends one byte.
func (u *UART) WriteByte(c byte) error {
	_, err := u.Write([]byte{c})
	return err
}
