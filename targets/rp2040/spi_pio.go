//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO0 register map
const (
	pio0Base      = 0x50200000
	pio0FSTAT     = pio0Base + 0x004
	pio0FDEBUG    = pio0Base + 0x008
	pio0FLEVEL    = pio0Base + 0x00c
	pio0IRQ0_INTE = pio0Base + 0x12c
	pio0IRQ0_INTS = pio0Base + 0x134
)

var (
	pioFStat  = (*volatile.Register32)(unsafe.Pointer(uintptr(pio0FSTAT)))
	pioFDebug = (*volatile.Register32)(unsafe.Pointer(uintptr(pio0FDEBUG)))
	pioFLevel = (*volatile.Register32)(unsafe.Pointer(uintptr(pio0FLEVEL)))
	pioInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(pio0IRQ0_INTE)))
	pioInts   = (*volatile.Register32)(unsafe.Pointer(uintptr(pio0IRQ0_INTS)))
)

// pioSPIIdle is the status bit PIOSPI reports while no byte is in flight.
const pioSPIIdle = 0x10

// The cpha0 program takes four PIO cycles per bit.
const pioSPICyclesPerBit = 4

// buildSPIProgram creates a mode 0 SPI master: data out on the falling
// edge, sampled on the rising edge, SCK on side-set.
func buildSPIProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestPins, 1).Side(0).Delay(1).Encode(), // 0: out pins, 1 side 0 [1]
		asm.In(rp2pio.InSrcPins, 1).Side(1).Delay(1).Encode(),    // 1: in pins, 1 side 1 [1]
		// .wrap
	}
}

// PIOSPI is an spi port over one PIO0 state machine with 8-bit autopull
// and autopush. Its interrupts are the state machine's RX-not-empty and
// TX-not-full sources on PIO0_IRQ_0.
type PIOSPI struct {
	sm    rp2pio.StateMachine
	smNum uint8
	sck   machine.Pin
	sdo   machine.Pin
	sdi   machine.Pin
	freq  uint32

	txISR, rxISR func()
	writes       uint32
}

// NewPIOSPI prepares state machine smNum of PIO0; Start loads the program.
func NewPIOSPI(smNum uint8, sck, sdo, sdi machine.Pin, freq uint32) *PIOSPI {
	return &PIOSPI{
		sm:    rp2pio.PIO0.StateMachine(smNum),
		smNum: smNum,
		sck:   sck,
		sdo:   sdo,
		sdi:   sdi,
		freq:  freq,
	}
}

func (s *PIOSPI) rxNotEmptyBit() uint32 { return 1 << s.smNum }
func (s *PIOSPI) txNotFullBit() uint32  { return 1 << (4 + s.smNum) }

// Start loads the program and enables the state machine.
func (s *PIOSPI) Start() {
	s.sm.TryClaim()

	program := buildSPIProgram()
	offset, err := rp2pio.PIO0.AddProgram(program, -1)
	if err != nil {
		println("pio spi: program load failed:", err.Error())
		return
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(s.sdo, 1)
	cfg.SetInPins(s.sdi, 1)
	cfg.SetSidesetPins(s.sck)
	cfg.SetSidesetParams(1, false, false)
	// MSB first, 8-bit autopull and autopush.
	cfg.SetOutShift(false, true, 8)
	cfg.SetInShift(false, true, 8)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	div := machine.CPUFrequency() / (s.freq * pioSPICyclesPerBit)
	if div == 0 {
		div = 1
	}
	cfg.SetClkDivIntFrac(uint16(div), 0)

	pincfg := machine.PinConfig{Mode: rp2pio.PIO0.PinMode()}
	s.sck.Configure(pincfg)
	s.sdo.Configure(pincfg)
	s.sdi.Configure(pincfg)

	s.sm.Init(offset, cfg)
	s.sm.SetPindirsConsecutive(s.sck, 1, true)
	s.sm.SetPindirsConsecutive(s.sdo, 1, true)
	s.sm.SetPindirsConsecutive(s.sdi, 1, false)
	s.sm.SetPinsConsecutive(s.sck, 1, false)
	s.sm.SetEnabled(true)
}

func (s *PIOSPI) EnableTxInterrupt()  { pioInte.SetBits(s.txNotFullBit()) }
func (s *PIOSPI) DisableTxInterrupt() { pioInte.ClearBits(s.txNotFullBit()) }
func (s *PIOSPI) EnableRxInterrupt()  { pioInte.SetBits(s.rxNotEmptyBit()) }
func (s *PIOSPI) DisableRxInterrupt() { pioInte.ClearBits(s.rxNotEmptyBit()) }

// ReadTxStatus reports pioSPIIdle when both FIFOs are empty and the state
// machine has stalled waiting for data, so the last byte has been clocked.
func (s *PIOSPI) ReadTxStatus() uint8 {
	empty := uint32(1)<<(24+s.smNum) | uint32(1)<<(8+s.smNum) // FSTAT TXEMPTY, RXEMPTY
	stall := uint32(1) << (24 + s.smNum)                      // FDEBUG TXSTALL
	if pioFStat.Get()&empty == empty && pioFDebug.HasBits(stall) {
		return pioSPIIdle
	}
	return 0
}

// WriteTxData queues one byte. The sticky stall flag is cleared first so it
// reflects this byte.
func (s *PIOSPI) WriteTxData(b byte) {
	pioFDebug.Set(1 << (24 + s.smNum))
	s.sm.TxPut(uint32(b) << 24)
	s.writes++
}

func (s *PIOSPI) ReadRxData() byte {
	return byte(s.sm.RxGet())
}

// RxBufferSize returns the receive FIFO level.
func (s *PIOSPI) RxBufferSize() uint8 {
	return uint8(pioFLevel.Get()>>(8*uint32(s.smNum)+4)) & 0xf
}

// ClearFIFO drops unread receive data. It is only called while idle, so
// the transmit FIFO is already empty.
func (s *PIOSPI) ClearFIFO() {
	for !s.sm.IsRxFIFOEmpty() {
		s.sm.RxGet()
	}
}

// BindInterrupts records the engine callbacks for handleInterrupt.
func (s *PIOSPI) BindInterrupts(tx, rx func()) {
	s.txISR, s.rxISR = tx, rx
}

// handleInterrupt services PIO0_IRQ_0 for this state machine. TX-not-full
// is a level source that stays asserted after the last byte is queued, so
// it is masked when the transmit callback had nothing to write; the next
// transfer unmasks it.
func (s *PIOSPI) handleInterrupt() {
	ints := pioInts.Get()
	if ints&s.rxNotEmptyBit() != 0 && s.rxISR != nil {
		s.rxISR()
	}
	if ints&s.txNotFullBit() != 0 && s.txISR != nil {
		before := s.writes
		s.txISR()
		if s.writes == before {
			s.DisableTxInterrupt()
		}
	}
}
