// Package irqsim emulates a small interrupt controller on the host so the
// interrupt-driven drivers can run against simulated or host-backed
// hardware.
//
// Handlers run one at a time through core.RunISR, which excludes foreground
// critical sections the way masking interrupts does on a single-core MCU.
// Device models register tickers that advance the hardware between
// interrupt deliveries.
//
// Line.Enable and Line.Disable enter a critical section themselves, so they
// must not be called from inside one or from a handler.
package irqsim

import (
	"sync"

	"serio/core"
)

// Line is one interrupt source. It fires when it is enabled and either an
// edge has been latched with Raise or its level function reports true.
type Line struct {
	c       *Controller
	name    string
	level   func() bool
	handler func()
	enabled bool
	pending bool
}

// Controller delivers interrupts for a set of lines.
type Controller struct {
	mu      sync.Mutex
	lines   []*Line
	tickers []func() bool

	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New creates an idle controller. Call Start to deliver interrupts from a
// background goroutine, or Drain to deliver them synchronously.
func New() *Controller {
	return &Controller{
		kick: make(chan struct{}, 1),
	}
}

// NewLine adds an interrupt source. level may be nil for a purely
// edge-triggered line. Lines start disabled.
func (c *Controller) NewLine(name string, level func() bool) *Line {
	l := &Line{c: c, name: name, level: level}
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
	return l
}

// AddTicker registers a device step. It is called between deliveries and
// reports whether the device made progress. Tickers must not call
// Line.Enable or Line.Disable.
func (c *Controller) AddTicker(tick func() bool) {
	c.mu.Lock()
	c.tickers = append(c.tickers, tick)
	c.mu.Unlock()
}

// Kick wakes the delivery goroutine.
func (c *Controller) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Start delivers interrupts from a background goroutine until Close.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
}

// Close stops the delivery goroutine and waits for it to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done
}

func (c *Controller) run(stop, done chan struct{}) {
	defer close(done)
	for {
		if c.Step() {
			continue
		}
		select {
		case <-c.kick:
		case <-stop:
			return
		}
	}
}

// Drain steps until neither the devices nor the lines have work left. It
// is the synchronous alternative to Start.
func (c *Controller) Drain() {
	for c.Step() {
	}
}

// Step runs every ticker once, then delivers each line that is ready. It
// reports whether anything happened.
func (c *Controller) Step() bool {
	c.mu.Lock()
	tickers := append([]func() bool(nil), c.tickers...)
	lines := append([]*Line(nil), c.lines...)
	c.mu.Unlock()

	progress := false
	for _, tick := range tickers {
		if tick() {
			progress = true
		}
	}
	for _, l := range lines {
		if fire, edge := l.ready(); fire {
			core.RunISR(func() { l.deliver(edge) })
			progress = true
		}
	}
	return progress
}

// SetHandler sets the handler called when the line fires.
func (l *Line) SetHandler(h func()) {
	l.c.mu.Lock()
	l.handler = h
	l.c.mu.Unlock()
}

// Enable unmasks the line. A latched edge or an active level fires soon
// after.
func (l *Line) Enable() {
	l.c.mu.Lock()
	l.enabled = true
	l.c.mu.Unlock()
	l.c.Kick()
}

// Disable masks the line. When it returns no handler of any line is
// running, and this line's handler will not run until Enable.
func (l *Line) Disable() {
	st := core.DisableInterrupts()
	l.c.mu.Lock()
	l.enabled = false
	l.c.mu.Unlock()
	core.RestoreInterrupts(st)
}

// Enabled reports whether the line is unmasked.
func (l *Line) Enabled() bool {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return l.enabled
}

// Raise latches an edge. It is kept while the line is masked.
func (l *Line) Raise() {
	l.c.mu.Lock()
	l.pending = true
	l.c.mu.Unlock()
	l.c.Kick()
}

// Pending reports whether an edge is latched.
func (l *Line) Pending() bool {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return l.pending
}

// ready consumes a latched edge or samples the level. The level function
// is called without the controller lock so device models may hold their
// own lock while raising lines.
func (l *Line) ready() (fire, edge bool) {
	l.c.mu.Lock()
	if !l.enabled || l.handler == nil {
		l.c.mu.Unlock()
		return false, false
	}
	if l.pending {
		l.pending = false
		l.c.mu.Unlock()
		return true, true
	}
	level := l.level
	l.c.mu.Unlock()
	return level != nil && level(), false
}

// deliver runs under core.RunISR. A line masked between ready and now keeps
// its edge for the next Enable.
func (l *Line) deliver(edge bool) {
	l.c.mu.Lock()
	h, on := l.handler, l.enabled
	if !on && edge {
		l.pending = true
	}
	l.c.mu.Unlock()
	if on && h != nil {
		h()
	}
}

func (l *Line) String() string {
	return l.name
}
