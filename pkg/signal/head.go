package signal

import "fmt"

// Color is a lamp color on a signal head.
type Color int

const (
	Red Color = iota
	Yellow
	Green
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Group is a set of heads that face the same movement.
type Group int

const (
	GroupAxisA Group = iota
	GroupAxisB
	GroupPedestrian
)

func (g Group) String() string {
	switch g {
	case GroupAxisA:
		return "axis_a"
	case GroupAxisB:
		return "axis_b"
	case GroupPedestrian:
		return "pedestrian"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// VehicleGroup returns the head group of axis.
func VehicleGroup(axis Axis) Group {
	if axis == AxisA {
		return GroupAxisA
	}
	return GroupAxisB
}

// Head is a single switchable lamp.
type Head int

const (
	HeadAxisARed Head = iota
	HeadAxisAYellow
	HeadAxisAGreen
	HeadAxisBRed
	HeadAxisBYellow
	HeadAxisBGreen
	HeadPedRed
	HeadPedGreen

	NumHeads
)

var headInfo = [NumHeads]struct {
	name  string
	group Group
	color Color
}{
	HeadAxisARed:    {"axis_a_red", GroupAxisA, Red},
	HeadAxisAYellow: {"axis_a_yellow", GroupAxisA, Yellow},
	HeadAxisAGreen:  {"axis_a_green", GroupAxisA, Green},
	HeadAxisBRed:    {"axis_b_red", GroupAxisB, Red},
	HeadAxisBYellow: {"axis_b_yellow", GroupAxisB, Yellow},
	HeadAxisBGreen:  {"axis_b_green", GroupAxisB, Green},
	HeadPedRed:      {"ped_red", GroupPedestrian, Red},
	HeadPedGreen:    {"ped_green", GroupPedestrian, Green},
}

// AllHeads lists every head in wiring order.
func AllHeads() []Head {
	out := make([]Head, 0, NumHeads)
	for h := HeadAxisARed; h < NumHeads; h++ {
		out = append(out, h)
	}
	return out
}

func (h Head) String() string {
	if h < 0 || h >= NumHeads {
		return fmt.Sprintf("head(%d)", int(h))
	}
	return headInfo[h].name
}

// ParseHead maps a head name back to its Head.
func ParseHead(s string) (Head, error) {
	for h, info := range headInfo {
		if info.name == s {
			return Head(h), nil
		}
	}
	return 0, fmt.Errorf("unknown signal head %q", s)
}

// Group returns the group the head belongs to.
func (h Head) Group() Group {
	return headInfo[h].group
}

// Color returns the lamp color.
func (h Head) Color() Color {
	return headInfo[h].color
}

// IsGo reports whether the lamp grants or ends vehicle right-of-way.
func (h Head) IsGo() bool {
	g := h.Group()
	return g != GroupPedestrian && h.Color() != Red
}

// HeadFor returns the head of group lit in color, if the group has one.
func HeadFor(g Group, c Color) (Head, bool) {
	for h, info := range headInfo {
		if info.group == g && info.color == c {
			return Head(h), true
		}
	}
	return 0, false
}

// GroupHeads returns the heads belonging to g.
func GroupHeads(g Group) []Head {
	var out []Head
	for h, info := range headInfo {
		if info.group == g {
			out = append(out, Head(h))
		}
	}
	return out
}
