// Package input turns raw button levels into one event per physical press.
package input

import (
	"fmt"
	"sync"

	"github.com/anggasct/crossing/pkg/signal"
)

// Button is a logical push button.
type Button int

const (
	ButtonAxisA Button = iota
	ButtonAxisB
	ButtonPedestrian

	NumButtons
)

// Buttons lists every button in sampling order.
var Buttons = [NumButtons]Button{ButtonAxisA, ButtonAxisB, ButtonPedestrian}

func (b Button) String() string {
	switch b {
	case ButtonAxisA:
		return "axis_a"
	case ButtonAxisB:
		return "axis_b"
	case ButtonPedestrian:
		return "pedestrian"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButton is the inverse of Button.String.
func ParseButton(s string) (Button, error) {
	for _, b := range Buttons {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// Axis returns the vehicle axis a count button reports for.
func (b Button) Axis() (signal.Axis, bool) {
	switch b {
	case ButtonAxisA:
		return signal.AxisA, true
	case ButtonAxisB:
		return signal.AxisB, true
	default:
		return 0, false
	}
}

// ButtonFor returns the count button of axis.
func ButtonFor(axis signal.Axis) Button {
	if axis == signal.AxisA {
		return ButtonAxisA
	}
	return ButtonAxisB
}

// Level is a debounced logical button level.
type Level int

const (
	Released Level = iota
	Pressed
)

func (l Level) String() string {
	if l == Pressed {
		return "pressed"
	}
	return "released"
}

// Reader returns the instantaneous level of a button. It must not block.
type Reader interface {
	ReadButtonRaw(b Button) Level
}

// Handler receives one call per detected press.
type Handler func(b Button)

// Sampler detects released-to-pressed edges.
type Sampler struct {
	mu      sync.Mutex
	in      Reader
	prev    [NumButtons]Level
	handler Handler
	presses uint64
}

// NewSampler creates a sampler. Every button starts released, so one held at
// power-on fires on the first sample.
func NewSampler(in Reader, handler Handler) *Sampler {
	return &Sampler{in: in, handler: handler}
}

// Sample reads every button once and fires the handler for each new press.
// It returns the number of presses detected.
func (s *Sampler) Sample() int {
	s.mu.Lock()
	var fired [NumButtons]bool
	count := 0
	for _, b := range Buttons {
		level := s.in.ReadButtonRaw(b)
		if s.prev[b] == Released && level == Pressed {
			fired[b] = true
			count++
		}
		s.prev[b] = level
	}
	s.presses += uint64(count)
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		for _, b := range Buttons {
			if fired[b] {
				handler(b)
			}
		}
	}
	return count
}

// Presses returns the total number of presses detected.
func (s *Sampler) Presses() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presses
}

// Level returns the last sampled level of b.
func (s *Sampler) Level(b Button) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev[b]
}
