package signal

import (
	"fmt"
	"strings"
	"sync"
)

// Aspect is the on/off state of every head.
type Aspect [NumHeads]bool

// Lit reports whether h is on.
func (a Aspect) Lit(h Head) bool {
	return a[h]
}

// LitHeads returns the heads that are on, in wiring order.
func (a Aspect) LitHeads() []Head {
	var out []Head
	for h, on := range a {
		if on {
			out = append(out, Head(h))
		}
	}
	return out
}

// ColorOf returns the lit color of a group, or false when the group is dark
// or shows more than one color.
func (a Aspect) ColorOf(g Group) (Color, bool) {
	var (
		color Color
		count int
	)
	for _, h := range GroupHeads(g) {
		if a[h] {
			color = h.Color()
			count++
		}
	}
	return color, count == 1
}

func (a Aspect) String() string {
	names := make([]string, 0, NumHeads)
	for _, h := range a.LitHeads() {
		names = append(names, h.String())
	}
	return "[" + strings.Join(names, " ") + "]"
}

// AllRed is every vehicle and pedestrian group showing red.
func AllRed() Aspect {
	var a Aspect
	a[HeadAxisARed] = true
	a[HeadAxisBRed] = true
	a[HeadPedRed] = true
	return a
}

// Project maps a phase to the aspect it shows. Any head not green or yellow
// for the phase is red.
func Project(p Phase) Aspect {
	a := AllRed()
	switch p {
	case AxisAGreen:
		a[HeadAxisARed], a[HeadAxisAGreen] = false, true
	case AxisAYellow:
		a[HeadAxisARed], a[HeadAxisAYellow] = false, true
	case AxisBGreen:
		a[HeadAxisBRed], a[HeadAxisBGreen] = false, true
	case AxisBYellow:
		a[HeadAxisBRed], a[HeadAxisBYellow] = false, true
	case Pedestrian:
		a[HeadPedRed], a[HeadPedGreen] = false, true
	default:
		panic(fmt.Sprintf("signal: unhandled phase %d", int(p)))
	}
	return a
}

// Writer drives one physical head.
type Writer interface {
	WriteSignal(h Head, on bool)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(h Head, on bool)

func (f WriterFunc) WriteSignal(h Head, on bool) { f(h, on) }

// Projector realizes phases on a Writer. Every change first drops both
// vehicle groups to red, then writes the new phase's heads.
type Projector struct {
	mu      sync.Mutex
	out     Writer
	state   Aspect
	known   [NumHeads]bool
	current Phase
	applied bool
}

// NewProjector creates a projector writing to out.
func NewProjector(out Writer) *Projector {
	return &Projector{out: out}
}

// Apply shows phase p.
func (p *Projector) Apply(phase Phase) {
	target := Project(phase)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.vehicleRed()
	p.writeDiff(target)
	p.current = phase
	p.applied = true
}

// Safe asserts the power-on state: every group red, nothing else lit.
func (p *Projector) Safe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.vehicleRed()
	p.writeDiff(AllRed())
	p.applied = false
}

// Aspect returns what the projector last wrote.
func (p *Projector) Aspect() Aspect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the phase last applied, and false after Safe or before any Apply.
func (p *Projector) Current() (Phase, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.applied
}

// vehicleRed writes the all-vehicle-red baseline unconditionally.
func (p *Projector) vehicleRed() {
	for _, axis := range Axes {
		g := VehicleGroup(axis)
		for _, h := range GroupHeads(g) {
			if h.IsGo() {
				p.write(h, false)
			}
		}
	}
	for _, axis := range Axes {
		red, _ := HeadFor(VehicleGroup(axis), Red)
		p.write(red, true)
	}
}

// writeDiff moves to target in four passes: lamps that go dark, reds that
// come on, reds that go dark, then the new lamps. No red is released while
// anything it protects is still lit.
func (p *Projector) writeDiff(target Aspect) {
	passes := [...]struct {
		red bool
		on  bool
	}{{false, false}, {true, true}, {true, false}, {false, true}}

	for _, pass := range passes {
		for h := HeadAxisARed; h < NumHeads; h++ {
			if (h.Color() == Red) != pass.red || target[h] != pass.on {
				continue
			}
			if p.known[h] && p.state[h] == pass.on {
				continue
			}
			p.write(h, pass.on)
		}
	}
}

func (p *Projector) write(h Head, on bool) {
	p.out.WriteSignal(h, on)
	p.state[h] = on
	p.known[h] = true
}
