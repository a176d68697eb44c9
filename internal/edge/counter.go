// Package edge counts endstop signal edges and waits for them inside
// bounded detection windows.
package edge

import "sync/atomic"

// Counter is the edge count shared between the endstop event handler and
// the cycle controller. OnEdge is the only writer besides Reset.
//
// The zero value is ready to use.
type Counter struct {
	n       atomic.Uint64
	waiting atomic.Bool
}

// OnEdge records one signal edge. Safe to call from the line event handler
// goroutine at any time.
func (c *Counter) OnEdge() {
	c.n.Add(1)
}

// Reset clears the count. It panics if a detection window is currently
// waiting on this counter, since that would silently drop counted edges.
func (c *Counter) Reset() {
	if c.waiting.Load() {
		panic("edge: Reset called during an active detection window")
	}
	c.n.Store(0)
}

// Snapshot returns the number of edges since the last Reset.
func (c *Counter) Snapshot() uint64 {
	return c.n.Load()
}
