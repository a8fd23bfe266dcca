package kernel

import "sync/atomic"

// Counter numbers execute requests. It only grows.
type Counter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *Counter) Next() int {
	return int(c.n.Add(1))
}

// Current returns the last value handed out.
func (c *Counter) Current() int {
	return int(c.n.Load())
}
