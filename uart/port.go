package uart

// Port is the minimum a UART hardware instance provides. The remaining
// capabilities are optional; a port that lacks one turns the matching
// driver operations into no-ops. A transmit-only port implements
// Transmitter but not Receiver.
type Port interface {
	// Start powers up and enables the peripheral.
	Start()
}

// Transmitter writes output data.
type Transmitter interface {
	// ReadTxStatus returns the transmit status register.
	ReadTxStatus() uint8

	// WriteTxData queues one byte for transmission.
	WriteTxData(b byte)
}

// Receiver reads input data.
type Receiver interface {
	// ReadRxStatus returns the receive status register.
	ReadRxStatus() uint8

	// ReadRxData pops one byte from the hardware receive queue.
	ReadRxData() byte
}

// Stopper disables the peripheral.
type Stopper interface {
	Stop()
}

// TxClearer discards bytes queued in the hardware transmit FIFO.
type TxClearer interface {
	ClearTxBuffer()
}

// RxClearer discards bytes held in the hardware receive FIFO.
type RxClearer interface {
	ClearRxBuffer()
}

// RxMasker masks the receive interrupt source alone. Without it, receive
// ring resets fall back to a global critical section.
type RxMasker interface {
	DisableRxInterrupt()
	EnableRxInterrupt()
	RxInterruptEnabled() bool
}

// InterruptBinder routes the peripheral's interrupt sources to the driver
// callbacks. Either handler is nil when the port lacks that direction.
type InterruptBinder interface {
	BindInterrupts(tx, rx func())
}
