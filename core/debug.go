package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event is one driver event kept for post-mortem analysis.
type Event struct {
	Kind   uint8  // Event code
	Unit   uint8  // Peripheral instance number
	Seq    uint32 // Running event counter
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event codes
const (
	EvtTxStart    = 1 // UART transmit programmed (v1=length)
	EvtTxDone     = 2 // UART transmit finished (v1=cursor)
	EvtTxTimeout  = 3 // UART transmit abandoned (v1=cursor, v2=length)
	EvtTxClear    = 4 // UART transmit buffer cleared
	EvtRxOverflow = 5 // UART receive ring dropped a byte (v1=dropped byte)
	EvtRxClear    = 6 // UART receive ring cleared (v1=bytes discarded)
	EvtSpiStart   = 7 // SPI transfer programmed (v1=send total, v2=primed)
	EvtSpiTimeout = 8 // SPI idle wait expired
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring buffer, guarded by lockEvents
	eventRing    [EventRingSize]Event
	eventSeq     uint32
	eventEnabled bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, slog etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetEventsEnabled turns event capture on or off.
func SetEventsEnabled(enabled bool) {
	eventEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output. Falls back to
// DebugPrintln before InitAsyncDebug and drops the message when the queue is full.
// Not for use inside interrupt handlers.
func DebugAsync(msg string) {
	if !debugEnabled {
		return
	}
	if debugChan == nil {
		DebugPrintln(msg)
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordEvent captures a driver event in the ring buffer. Safe to call from
// interrupt handlers.
func RecordEvent(kind, unit uint8, value1, value2 uint32) {
	if !eventEnabled {
		return
	}
	st := lockEvents()
	eventSeq++
	eventRing[eventSeq%EventRingSize] = Event{
		Kind:   kind,
		Unit:   unit,
		Seq:    eventSeq,
		Value1: value1,
		Value2: value2,
	}
	unlockEvents(st)
}

// Events returns the captured events, oldest first.
func Events() []Event {
	st := lockEvents()
	defer unlockEvents(st)

	out := make([]Event, 0, EventRingSize)
	for i := uint32(1); i <= EventRingSize; i++ {
		evt := eventRing[(eventSeq+i)%EventRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns the printable name of an event code.
func EventName(kind uint8) string {
	switch kind {
	case EvtTxStart:
		return "TX_START"
	case EvtTxDone:
		return "TX_DONE"
	case EvtTxTimeout:
		return "TX_TIMEOUT!"
	case EvtTxClear:
		return "TX_CLEAR"
	case EvtRxOverflow:
		return "RX_OVERFLOW!"
	case EvtRxClear:
		return "RX_CLEAR"
	case EvtSpiStart:
		return "SPI_START"
	case EvtSpiTimeout:
		return "SPI_TIMEOUT!"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents outputs the event ring (call on shutdown/error)
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.Kind) +
			" unit=" + itoa(int(evt.Unit)) +
			" seq=" + utoa(evt.Seq) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	st := lockEvents()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventSeq = 0
	unlockEvents(st)
}
