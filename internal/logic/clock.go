package logic

import "time"

// Clock is a restartable timer with a single callback. A periodic clock
// fires once per interval until stopped; a one-shot clock fires once and
// disarms itself.
//
// Clocks never run on their own goroutine. The owner calls Advance with the
// current time and every due fire is delivered synchronously, so a Stop
// from inside a callback (or anywhere else) prevents any further fire.
type Clock struct {
	interval time.Duration
	oneShot  bool
	onFire   func(at time.Time)
	next     time.Time
	active   bool
}

// NewClock creates a stopped periodic clock.
func NewClock(interval time.Duration, onFire func(at time.Time)) *Clock {
	return &Clock{interval: interval, onFire: onFire}
}

// NewOneShot creates a stopped one-shot timer.
func NewOneShot(delay time.Duration, onFire func(at time.Time)) *Clock {
	return &Clock{interval: delay, oneShot: true, onFire: onFire}
}

// Start arms the clock to fire one interval after now, replacing any
// pending fire.
func (c *Clock) Start(now time.Time) {
	c.next = now.Add(c.interval)
	c.active = true
}

// Stop disarms the clock. Stopping a stopped clock is a no-op.
func (c *Clock) Stop() {
	c.active = false
}

// Active reports whether the clock is armed.
func (c *Clock) Active() bool {
	return c.active
}

// Advance delivers every fire due at or before now.
func (c *Clock) Advance(now time.Time) {
	for c.due(now) {
		c.fire()
	}
}

func (c *Clock) due(now time.Time) bool {
	return c.active && !now.Before(c.next)
}

func (c *Clock) fire() {
	at := c.next
	if c.oneShot {
		c.active = false
	} else {
		c.next = c.next.Add(c.interval)
	}
	c.onFire(at)
}

// AdvanceAll delivers the due fires of several clocks in time order.
// Fires scheduled for the same instant are delivered in argument order.
// A callback may start or stop any of the clocks; the next fire is chosen
// after every callback returns.
func AdvanceAll(now time.Time, clocks ...*Clock) {
	for {
		var earliest *Clock
		for _, c := range clocks {
			if !c.due(now) {
				continue
			}
			if earliest == nil || c.next.Before(earliest.next) {
				earliest = c
			}
		}
		if earliest == nil {
			return
		}
		earliest.fire()
	}
}
