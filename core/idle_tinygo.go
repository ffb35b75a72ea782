//go:build tinygo && cortexm

package core

import "device/arm"

// Idle waits for the next event or interrupt.
func Idle() {
	arm.Asm("wfe")
}
