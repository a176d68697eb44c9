// Package clock abstracts the passage of time for the cycle controller.
// The real implementation wraps the time package.
// The fake implementation lets tests step time deterministically.
package clock

import "time"

// Clock is the time source used for detection windows, phase timing and
// inter-cycle delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
	// AfterFunc calls fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Sleep calls time.Sleep.
func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// After calls time.After.
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// AfterFunc calls time.AfterFunc.
func (Real) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }
