//go:build !tinygo

package core

import "runtime"

// Idle yields the processor while a driver polls for a condition.
func Idle() {
	runtime.Gosched()
}
