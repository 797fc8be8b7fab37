package jit

import "sync/atomic"

// Clock is a monotonic logical clock stamping executed instructions. Every
// step gets a strictly increasing seq, which keeps recorded gate traces
// ordered without wall-clock involvement and makes replays comparable.
//
// Thread-safety: atomic, although execution is single-threaded by contract.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the clock position without advancing it.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
