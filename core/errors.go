package core

import "errors"

// Driver errors.
var (
	// ErrWouldBlock indicates the operation needs to wait to make progress.
	ErrWouldBlock = errors.New("operation would block")

	// ErrTimeout indicates a bounded wait expired.
	ErrTimeout = errors.New("timeout")

	// ErrOverflow indicates the receive ring dropped data.
	ErrOverflow = errors.New("receive buffer overflow")

	// ErrBusy indicates a transfer is already in progress.
	ErrBusy = errors.New("transfer in progress")

	// ErrNoInstance indicates no hardware instance is left or the number is out of range.
	ErrNoInstance = errors.New("no such instance")

	// ErrUnsupported indicates the port does not provide the capability.
	ErrUnsupported = errors.New("not supported by port")

	// ErrInvalidParameter indicates an invalid argument.
	ErrInvalidParameter = errors.New("invalid parameter")
)
