package timing

import (
	"time"
)

// Clock is the only suspension point of the controller.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Defaults for the dwell cadence.
const (
	DefaultTick     = time.Second
	DefaultSubTicks = 50
)

// Dweller runs dwells as ticks split into polled sub-ticks. Every sub-tick
// deadline is computed from the dwell's start, so slow polls or late wakeups
// never push later ticks back.
type Dweller struct {
	clock    Clock
	tick     time.Duration
	subTicks int
}

// NewDweller creates a dweller. Non-positive arguments fall back to the defaults.
func NewDweller(clock Clock, tick time.Duration, subTicks int) *Dweller {
	if clock == nil {
		clock = SystemClock{}
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	if subTicks <= 0 {
		subTicks = DefaultSubTicks
	}
	return &Dweller{clock: clock, tick: tick, subTicks: subTicks}
}

// Tick returns the tick length.
func (d *Dweller) Tick() time.Duration { return d.tick }

// SubTicks returns the number of polls per tick.
func (d *Dweller) SubTicks() int { return d.subTicks }

// Dwell blocks for ticks ticks. onTick runs at the start of every tick with
// the ticks remaining, counting down to 1. poll runs once per sub-tick.
// A dwell always runs to completion.
func (d *Dweller) Dwell(ticks int, onTick func(remaining int), poll func()) {
	start := d.clock.Now()
	for k := 0; k < ticks; k++ {
		if onTick != nil {
			onTick(ticks - k)
		}
		base := d.tick * time.Duration(k)
		for s := 0; s < d.subTicks; s++ {
			if poll != nil {
				poll()
			}
			deadline := start.Add(base + d.tick*time.Duration(s+1)/time.Duration(d.subTicks))
			if wait := deadline.Sub(d.clock.Now()); wait > 0 {
				d.clock.Sleep(wait)
			}
		}
	}
}

// Hold blocks for a fixed pause outside any dwell.
func (d *Dweller) Hold(pause time.Duration) {
	if pause > 0 {
		d.clock.Sleep(pause)
	}
}
