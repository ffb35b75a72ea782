//go:build tinygo && !cortexm

package core

import "runtime"

// Idle yields to the scheduler on targets without a wait-for-event instruction.
func Idle() {
	runtime.Gosched()
}
