package core

import (
	"testing"
	"time"
)

func TestDeadlineNever(t *testing.T) {
	d := NewDeadline(NoTimeout)
	if d.Expired() {
		t.Error("Zero timeout must never expire")
	}
	if d.Remaining() != -1 {
		t.Errorf("Expected -1 remaining, got %v", d.Remaining())
	}
}

func TestWaitUntilTimeout(t *testing.T) {
	start := time.Now()
	if WaitUntil(NewDeadline(10*time.Millisecond), func() bool { return false }) {
		t.Fatal("WaitUntil reported success for a false condition")
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("WaitUntil returned after %v", elapsed)
	}
}

func TestWaitUntilCondition(t *testing.T) {
	calls := 0
	ok := WaitUntil(NewDeadline(time.Second), func() bool {
		calls++
		return calls == 3
	})
	if !ok || calls != 3 {
		t.Errorf("Expected success on the third poll, got ok=%v calls=%d", ok, calls)
	}
}
