package core

// Status tells how a driver operation ended.
type Status uint8

// Operation status values.
const (
	StatusCompleted  Status = iota // Finished; N holds the unit count
	StatusWouldBlock               // Cannot finish without waiting
	StatusTimedOut                 // A bounded wait expired
	StatusOverflow                 // Receive data was dropped
	StatusBusy                     // Rejected, a transfer is in progress
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusWouldBlock:
		return "would-block"
	case StatusTimedOut:
		return "timed-out"
	case StatusOverflow:
		return "overflow"
	case StatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error for the status, or nil for StatusCompleted.
func (s Status) Err() error {
	switch s {
	case StatusCompleted:
		return nil
	case StatusWouldBlock:
		return ErrWouldBlock
	case StatusTimedOut:
		return ErrTimeout
	case StatusOverflow:
		return ErrOverflow
	case StatusBusy:
		return ErrBusy
	default:
		return ErrInvalidParameter
	}
}

// Result is the outcome of a driver operation. N counts the units moved
// before the operation ended, whatever its status.
type Result struct {
	Status Status
	N      int
}

// Completed returns a successful result moving n units.
func Completed(n int) Result { return Result{Status: StatusCompleted, N: n} }

// WouldBlock returns a result for an operation that needs to wait.
func WouldBlock(n int) Result { return Result{Status: StatusWouldBlock, N: n} }

// TimedOut returns a result for a wait that expired after n units.
func TimedOut(n int) Result { return Result{Status: StatusTimedOut, N: n} }

// Overflowed returns a result reporting dropped receive data.
func Overflowed() Result { return Result{Status: StatusOverflow} }

// Busy returns a rejected result.
func Busy() Result { return Result{Status: StatusBusy} }

// OK reports whether the operation completed.
func (r Result) OK() bool {
	return r.Status == StatusCompleted
}

// Err returns the error for the result status.
func (r Result) Err() error {
	return r.Status.Err()
}

func (r Result) String() string {
	return r.Status.String() + "(" + itoa(r.N) + ")"
}
