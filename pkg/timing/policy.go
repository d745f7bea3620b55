package timing

import (
	"fmt"

	"github.com/anggasct/crossing/pkg/signal"
)

// Default phase lengths in ticks.
const (
	DefaultBaseGreen  = 10
	DefaultYellow     = 3
	DefaultPedestrian = 8
)

// Policy gives the dwell of every phase in ticks.
type Policy struct {
	BaseGreen  int
	Yellow     int
	Pedestrian int
	Table      Table
}

// DefaultPolicy is base green 10, yellow 3, walk 8 with the five-tier table.
func DefaultPolicy() Policy {
	return Policy{
		BaseGreen:  DefaultBaseGreen,
		Yellow:     DefaultYellow,
		Pedestrian: DefaultPedestrian,
		Table:      FiveTier(),
	}
}

// Breakdown splits a green dwell into its base and traffic-earned parts.
type Breakdown struct {
	Base  int
	Extra int
}

// Total returns base plus extra.
func (b Breakdown) Total() int {
	return b.Base + b.Extra
}

// GreenBreakdown returns the green dwell earned by count.
func (p Policy) GreenBreakdown(count int) Breakdown {
	return Breakdown{Base: p.BaseGreen, Extra: p.Table.Extra(count)}
}

// GreenSeconds returns the total green dwell for count.
func (p Policy) GreenSeconds(count int) int {
	return p.GreenBreakdown(count).Total()
}

// Dwell returns the length of phase. count is the served axis's counter and
// only matters for green phases.
func (p Policy) Dwell(phase signal.Phase, count int) int {
	switch phase {
	case signal.AxisAGreen, signal.AxisBGreen:
		return p.GreenSeconds(count)
	case signal.AxisAYellow, signal.AxisBYellow:
		return p.Yellow
	case signal.Pedestrian:
		return p.Pedestrian
	default:
		panic(fmt.Sprintf("timing: unhandled phase %d", int(phase)))
	}
}

// Validate checks every dwell is at least one tick.
func (p Policy) Validate() error {
	if p.BaseGreen < 1 {
		return fmt.Errorf("base green must be at least 1 tick, got %d", p.BaseGreen)
	}
	if p.Yellow < 1 {
		return fmt.Errorf("yellow must be at least 1 tick, got %d", p.Yellow)
	}
	if p.Pedestrian < 1 {
		return fmt.Errorf("pedestrian must be at least 1 tick, got %d", p.Pedestrian)
	}
	return p.Table.Validate()
}
