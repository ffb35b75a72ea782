//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarm1Bit = 1 << 1
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))

	tickPeriod uint32
)

// GetHardwareTime reads the low 32 bits of the 1MHz microsecond timer.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// startTick arms alarm 1 to fire every periodUs microseconds. The runtime
// uses alarm 0 for sleeping.
func startTick(periodUs uint32) {
	tickPeriod = periodUs
	timerInte.SetBits(alarm1Bit)
	timerAlarm1.Set(GetHardwareTime() + tickPeriod)
}

// ackTick clears the alarm and re-arms it relative to the previous
// deadline so the rate does not drift.
func ackTick() {
	timerIntr.Set(alarm1Bit)
	next := timerAlarm1.Get() + tickPeriod
	if int32(next-GetHardwareTime()) <= 0 {
		next = GetHardwareTime() + tickPeriod
	}
	timerAlarm1.Set(next)
}
