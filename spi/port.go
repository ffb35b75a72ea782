package spi

// Port is the hardware interface of one SPI master instance.
type Port interface {
	// Start powers up and enables the peripheral.
	Start()

	EnableTxInterrupt()
	DisableTxInterrupt()
	EnableRxInterrupt()
	DisableRxInterrupt()

	// ReadTxStatus returns the status register holding the idle bit.
	ReadTxStatus() uint8

	// WriteTxData queues one byte for clocking out.
	WriteTxData(b byte)

	// ReadRxData pops one received byte.
	ReadRxData() byte

	// RxBufferSize returns the number of bytes in the receive FIFO.
	RxBufferSize() uint8

	// ClearFIFO empties the transmit and receive FIFOs.
	ClearFIFO()
}

// InterruptBinder routes the transmit and receive interrupt sources to the
// engine callbacks.
type InterruptBinder interface {
	BindInterrupts(tx, rx func())
}
