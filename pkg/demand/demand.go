// Package demand holds the per-axis traffic counters, the pedestrian request
// latch and the policy deciding when a count press is accepted.
package demand

import (
	"fmt"
	"strings"
	"sync"
)

// Counter is a resetting vehicle count, optionally clamped at a maximum.
// A zero max means unbounded.
type Counter struct {
	mu    sync.Mutex
	value int
	max   int
}

// NewCounter creates a counter clamped at max, or unbounded when max is 0.
func NewCounter(max int) *Counter {
	if max < 0 {
		max = 0
	}
	return &Counter{max: max}
}

// Increment adds one unless the cap is reached. It reports whether the value changed.
func (c *Counter) Increment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max > 0 && c.value >= c.max {
		return false
	}
	c.value++
	return true
}

// Reset sets the counter back to zero and returns the value it held.
func (c *Counter) Reset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.value
	c.value = 0
	return v
}

// Value returns the current count.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Max returns the cap, 0 when unbounded.
func (c *Counter) Max() int {
	return c.max
}

// Latch is the sticky pedestrian request.
type Latch struct {
	mu      sync.Mutex
	pending bool
}

// Set raises the request. It reports false when one was already pending.
func (l *Latch) Set() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending {
		return false
	}
	l.pending = true
	return true
}

// Clear drops the request after it has been served.
func (l *Latch) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = false
}

// Pending reports whether a request is waiting.
func (l *Latch) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// CountingMode selects when a count press is accepted.
type CountingMode int

const (
	// Gated accepts a press only while its axis is red.
	Gated CountingMode = iota
	// Unconditional accepts every press up to the counter cap.
	Unconditional
)

func (m CountingMode) String() string {
	switch m {
	case Gated:
		return "gated"
	case Unconditional:
		return "unconditional"
	default:
		return fmt.Sprintf("counting_mode(%d)", int(m))
	}
}

// ParseCountingMode parses "gated" or "unconditional".
func ParseCountingMode(s string) (CountingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gated":
		return Gated, nil
	case "unconditional":
		return Unconditional, nil
	default:
		return 0, fmt.Errorf("unknown counting mode %q", s)
	}
}

// Outcome is what happened to a count press.
type Outcome int

const (
	Counted Outcome = iota
	// NotRed means the press arrived while its axis held right-of-way.
	NotRed
	// Capped means the counter is already at its maximum.
	Capped
)

func (o Outcome) String() string {
	switch o {
	case Counted:
		return "counted"
	case NotRed:
		return "not_red"
	case Capped:
		return "capped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Policy decides whether to count a press.
type Policy struct {
	Mode CountingMode
	// Max clamps every counter; 0 is unbounded.
	Max int
}

// Canonical is gated counting without a cap.
func Canonical() Policy {
	return Policy{Mode: Gated}
}

// CappedAt is the unconditional variant clamped at max.
func CappedAt(max int) Policy {
	return Policy{Mode: Unconditional, Max: max}
}

// Allows reports whether a press is eligible given the axis's red state.
func (p Policy) Allows(axisIsRed bool) bool {
	return p.Mode == Unconditional || axisIsRed
}

// Record applies a press to c under the policy.
func (p Policy) Record(c *Counter, axisIsRed bool) Outcome {
	if !p.Allows(axisIsRed) {
		return NotRed
	}
	if !c.Increment() {
		return Capped
	}
	return Counted
}

// Counters holds one counter per axis, indexed by signal.Axis.
type Counters [2]*Counter

// NewCounters creates both axis counters under policy p.
func NewCounters(p Policy) Counters {
	return Counters{NewCounter(p.Max), NewCounter(p.Max)}
}
