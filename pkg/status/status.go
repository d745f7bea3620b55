// Package status formats the two-line status shown on the cabinet display.
package status

import (
	"fmt"

	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/timing"
)

// Presenter replaces the displayed text. Failures are the presenter's own business.
type Presenter interface {
	ShowStatus(line1, line2 string)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(line1, line2 string)

func (f PresenterFunc) ShowStatus(line1, line2 string) { f(line1, line2) }

// Discard drops every message.
var Discard Presenter = PresenterFunc(func(string, string) {})

// Message is one screenful.
type Message struct {
	Line1 string
	Line2 string
}

// Show sends m to p.
func (m Message) Show(p Presenter) {
	p.ShowStatus(m.Line1, m.Line2)
}

func (m Message) String() string {
	return m.Line1 + " | " + m.Line2
}

// Labels names the two axes on screen.
type Labels struct {
	AxisA string
	AxisB string
}

// DefaultLabels names the axes by compass direction.
func DefaultLabels() Labels {
	return Labels{AxisA: "NS", AxisB: "EW"}
}

// Of returns the label of axis.
func (l Labels) Of(axis signal.Axis) string {
	if axis == signal.AxisA {
		return l.AxisA
	}
	return l.AxisB
}

// Formatter builds every message the controller shows.
type Formatter struct {
	Labels Labels
}

// NewFormatter creates a formatter using labels.
func NewFormatter(labels Labels) Formatter {
	return Formatter{Labels: labels}
}

// Green is shown every tick of a green phase.
func (f Formatter) Green(axis signal.Axis, b timing.Breakdown, remaining, otherCount int) Message {
	return Message{
		Line1: fmt.Sprintf("%s Green %d+%ds", f.Labels.Of(axis), b.Base, b.Extra),
		Line2: fmt.Sprintf("T=%d %s=%d", remaining, f.Labels.Of(axis.Other()), otherCount),
	}
}

// Yellow is shown every tick of a yellow phase.
func (f Formatter) Yellow(axis signal.Axis, remaining, otherCount int) Message {
	return Message{
		Line1: fmt.Sprintf("%s Yellow T=%ds", f.Labels.Of(axis), remaining),
		Line2: fmt.Sprintf("%s=%d", f.Labels.Of(axis.Other()), otherCount),
	}
}

// Pedestrian is shown every tick of the walk phase.
func (f Formatter) Pedestrian(remaining int) Message {
	return Message{Line1: "PEDESTRIAN", Line2: fmt.Sprintf("T=%d WALK", remaining)}
}

// PedestrianStop is shown when the walk phase ends.
func (f Formatter) PedestrianStop() Message {
	return Message{Line1: "PEDESTRIAN", Line2: "STOP"}
}

// Counted acknowledges a counted press in gated mode.
func (f Formatter) Counted(axis signal.Axis, count int) Message {
	label := f.Labels.Of(axis)
	return Message{Line1: label + " RED: Count", Line2: fmt.Sprintf("%s=%d", label, count)}
}

// TrafficCount acknowledges a counted press in unconditional mode.
func (f Formatter) TrafficCount(axis signal.Axis, count int) Message {
	label := f.Labels.Of(axis)
	return Message{Line1: label + " traffic cnt", Line2: fmt.Sprintf("%s = %d", label, count)}
}

// NotCounted reports a press ignored because its axis is not red.
func (f Formatter) NotCounted(axis signal.Axis) Message {
	return Message{Line1: f.Labels.Of(axis) + " not RED", Line2: "No count"}
}

// AtCap reports a press ignored because the counter is full.
func (f Formatter) AtCap(axis signal.Axis, count int) Message {
	label := f.Labels.Of(axis)
	return Message{Line1: label + " traffic max", Line2: fmt.Sprintf("%s = %d", label, count)}
}

// RequestReceived acknowledges a pedestrian press.
func (f Formatter) RequestReceived() Message {
	return Message{Line1: "Pedestrian Req", Line2: "Received"}
}

// Starting is shown while outputs are initialised.
func (f Formatter) Starting() Message {
	return Message{Line1: "Traffic System", Line2: "Starting..."}
}

// Ready is shown once outputs are safe.
func (f Formatter) Ready() Message {
	return Message{Line1: "Traffic System", Line2: "Ready"}
}
