//go:build !tinygo

package core

import "sync"

// State is the saved interrupt state returned by DisableInterrupts.
type State uintptr

// cpu stands in for the single core of the target. Interrupt handlers
// delivered through RunISR hold it, so a foreground critical section
// excludes them the same way masking interrupts does on hardware.
var cpu sync.Mutex

// DisableInterrupts enters a critical section. Critical sections do not nest
// on the host.
func DisableInterrupts() State {
	cpu.Lock()
	return 1
}

// RestoreInterrupts leaves the critical section entered by DisableInterrupts.
func RestoreInterrupts(state State) {
	if state != 0 {
		cpu.Unlock()
	}
}

// RunISR runs an interrupt handler as if the hardware had raised it.
func RunISR(isr func()) {
	cpu.Lock()
	defer cpu.Unlock()
	isr()
}

var eventMu sync.Mutex

func lockEvents() State {
	eventMu.Lock()
	return 1
}

func unlockEvents(State) {
	eventMu.Unlock()
}
