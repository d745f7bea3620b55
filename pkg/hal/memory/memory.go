// Package memory provides in-process stand-ins for the cabinet hardware: a
// recording signal board, scripted buttons, a recording display and a manual
// clock. Time only moves when something sleeps, so whole cycles run instantly.
package memory

import (
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/status"
)

// Clock is a manual clock advanced by Sleep.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

// NewClock creates a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{start: start, now: start}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed returns the time since the clock's start.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Write is one recorded head write.
type Write struct {
	Head signal.Head
	On   bool
}

// Board records every head write.
type Board struct {
	mu     sync.Mutex
	writes []Write
	aspect signal.Aspect
}

// NewBoard creates an empty board with every lamp off.
func NewBoard() *Board {
	return &Board{}
}

// WriteSignal records the write.
func (b *Board) WriteSignal(h signal.Head, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, Write{Head: h, On: on})
	b.aspect[h] = on
}

// Aspect returns the lamps currently lit.
func (b *Board) Aspect() signal.Aspect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aspect
}

// Writes returns a copy of every write so far.
func (b *Board) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Write, len(b.writes))
	copy(out, b.writes)
	return out
}

// ClearWrites forgets the write log but keeps the lamp state.
func (b *Board) ClearWrites() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = nil
}

type press struct {
	button input.Button
	at     time.Duration
	hold   time.Duration
}

// Buttons reads levels from a script of timed presses, measured on a clock,
// with optional manual overrides.
type Buttons struct {
	mu       sync.Mutex
	clock    *Clock
	script   []press
	override map[input.Button]input.Level
}

// NewButtons creates buttons timed against clock.
func NewButtons(clock *Clock) *Buttons {
	return &Buttons{clock: clock, override: make(map[input.Button]input.Level)}
}

// PressAt holds b down for hold, starting at offset at from the clock's start.
func (b *Buttons) PressAt(button input.Button, at, hold time.Duration) *Buttons {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script = append(b.script, press{button: button, at: at, hold: hold})
	return b
}

// Hold forces b pressed until Release.
func (b *Buttons) Hold(button input.Button) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.override[button] = input.Pressed
}

// Release drops a manual override.
func (b *Buttons) Release(button input.Button) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.override, button)
}

// ReadButtonRaw returns the scripted or overridden level.
func (b *Buttons) ReadButtonRaw(button input.Button) input.Level {
	elapsed := b.clock.Elapsed()

	b.mu.Lock()
	defer b.mu.Unlock()
	if level, ok := b.override[button]; ok {
		return level
	}
	for _, p := range b.script {
		if p.button == button && elapsed >= p.at && elapsed < p.at+p.hold {
			return input.Pressed
		}
	}
	return input.Released
}

// Display records every status message.
type Display struct {
	mu       sync.Mutex
	messages []status.Message
}

// NewDisplay creates an empty display.
func NewDisplay() *Display {
	return &Display{}
}

// ShowStatus records the message.
func (d *Display) ShowStatus(line1, line2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, status.Message{Line1: line1, Line2: line2})
}

// Messages returns a copy of every message so far.
func (d *Display) Messages() []status.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]status.Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// Last returns the latest message.
func (d *Display) Last() (status.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) == 0 {
		return status.Message{}, false
	}
	return d.messages[len(d.messages)-1], true
}

// Contains reports whether m was ever shown.
func (d *Display) Contains(m status.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, got := range d.messages {
		if got == m {
			return true
		}
	}
	return false
}
