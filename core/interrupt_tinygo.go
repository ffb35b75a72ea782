//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt state returned by DisableInterrupts.
type State = interrupt.State

// DisableInterrupts disables interrupts and returns the previous state
func DisableInterrupts() State {
	return interrupt.Disable()
}

// RestoreInterrupts restores the interrupt state
func RestoreInterrupts(state State) {
	interrupt.Restore(state)
}

// RunISR calls isr directly; on the target the hardware delivers interrupts.
func RunISR(isr func()) {
	isr()
}

// The event ring is written from handlers, so it is guarded by masking.
func lockEvents() State {
	return interrupt.Disable()
}

func unlockEvents(state State) {
	interrupt.Restore(state)
}
