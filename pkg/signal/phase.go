// Package signal models the intersection's right-of-way phases and the signal
// heads they light, and writes phase changes to hardware through an all-red
// baseline.
package signal

import "fmt"

// Axis is one of the two perpendicular vehicle approaches.
type Axis int

const (
	AxisA Axis = iota
	AxisB
)

// Other returns the perpendicular axis.
func (a Axis) Other() Axis {
	if a == AxisA {
		return AxisB
	}
	return AxisA
}

func (a Axis) String() string {
	switch a {
	case AxisA:
		return "axis_a"
	case AxisB:
		return "axis_b"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Axes lists both vehicle axes in cycle order.
var Axes = [...]Axis{AxisA, AxisB}

// Phase is the active right-of-way assignment.
type Phase int

const (
	AxisAGreen Phase = iota
	AxisAYellow
	AxisBGreen
	AxisBYellow
	Pedestrian

	numPhases
)

var phaseNames = [numPhases]string{
	AxisAGreen:  "axis_a_green",
	AxisAYellow: "axis_a_yellow",
	AxisBGreen:  "axis_b_green",
	AxisBYellow: "axis_b_yellow",
	Pedestrian:  "pedestrian",
}

// AllPhases lists every phase in declaration order.
func AllPhases() []Phase {
	out := make([]Phase, 0, numPhases)
	for p := AxisAGreen; p < numPhases; p++ {
		out = append(out, p)
	}
	return out
}

// String returns the phase's state ID in the phase machine.
func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Valid reports whether p is a declared phase.
func (p Phase) Valid() bool {
	return p >= 0 && p < numPhases
}

// ParsePhase maps a state ID back to its Phase.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s {
			return Phase(p), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Axis returns the vehicle axis holding right-of-way, and false for the
// pedestrian phase.
func (p Phase) Axis() (Axis, bool) {
	switch p {
	case AxisAGreen, AxisAYellow:
		return AxisA, true
	case AxisBGreen, AxisBYellow:
		return AxisB, true
	case Pedestrian:
		return 0, false
	default:
		panic(fmt.Sprintf("signal: unhandled phase %d", int(p)))
	}
}

// IsGreen reports whether p is a vehicle green phase.
func (p Phase) IsGreen() bool {
	return p == AxisAGreen || p == AxisBGreen
}

// IsYellow reports whether p is a vehicle yellow phase.
func (p Phase) IsYellow() bool {
	return p == AxisAYellow || p == AxisBYellow
}

// Serves reports whether axis shows green or yellow during p.
func (p Phase) Serves(axis Axis) bool {
	served, ok := p.Axis()
	return ok && served == axis
}

// IsRedFor reports whether axis is in a red-equivalent state during p.
func (p Phase) IsRedFor(axis Axis) bool {
	return !p.Serves(axis)
}

// GreenPhase returns the green phase of axis.
func GreenPhase(axis Axis) Phase {
	if axis == AxisA {
		return AxisAGreen
	}
	return AxisBGreen
}

// YellowPhase returns the yellow phase of axis.
func YellowPhase(axis Axis) Phase {
	if axis == AxisA {
		return AxisAYellow
	}
	return AxisBYellow
}
