// Package serial connects the UART driver to a host serial device.
package serial

import (
	"io"
)

// Port is the byte stream Hardware drives. Read should return within a
// bounded time (a read timeout or EOF) so Stop is noticed; Close must
// unblock a pending Read.
type Port interface {
	io.ReadWriteCloser
}

// Config selects a serial device and its line settings.
type Config struct {
	Device string // path such as /dev/ttyUSB0 or COM3
	Baud   int

	// ReadTimeout bounds each Read in milliseconds; 0 blocks until data.
	ReadTimeout int
}

// DefaultConfig returns 115200 baud with a read timeout short enough for
// the Hardware reader goroutine to notice Stop promptly.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
	}
}
