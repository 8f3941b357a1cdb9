// Package encoder drives the two encode paths of an export: the primary
// single-invocation encoder with capability-gated retries, and the fallback
// transcoder built from two concurrent sample-copy loops. It also carries the
// post-pass audio normalizer.
package encoder

import "sync"

// ErrorCell is a single-assignment error slot shared by concurrent copy
// loops. The first recorded error wins; later writes are no-ops. Loops poll
// Failed to stop early once any side has failed.
type ErrorCell struct {
	mu  sync.Mutex
	err error
}

// Set records err if the cell is still empty. Setting nil is a no-op.
func (c *ErrorCell) Set(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// Err returns the recorded error, or nil.
func (c *ErrorCell) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Failed reports whether any error has been recorded.
func (c *ErrorCell) Failed() bool {
	return c.Err() != nil
}
