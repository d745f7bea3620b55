// Package periph drives the signal heads and reads the push buttons over
// periph.io GPIO pins.
//
// Heads are active high unless the board is built WithActiveLow. Buttons are
// wired to ground with the internal pull-up enabled, so a pressed button
// reads low.
package periph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
)

// Board drives one output pin per signal head.
type Board struct {
	mu        sync.Mutex
	pins      [signal.NumHeads]gpio.PinOut
	activeLow bool
	logger    *slog.Logger
	failures  int
}

// Option configures a Board.
type Option func(*Board)

// WithLogger logs failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithActiveLow inverts every output, for relay boards that switch on low.
func WithActiveLow() Option {
	return func(b *Board) {
		b.activeLow = true
	}
}

// NewBoard takes a pin for every head and drives them all dark.
func NewBoard(pins map[signal.Head]gpio.PinOut, opts ...Option) (*Board, error) {
	b := &Board{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	for _, h := range signal.AllHeads() {
		pin, ok := pins[h]
		if !ok || pin == nil {
			return nil, fmt.Errorf("periph: no pin for head %s", h)
		}
		b.pins[h] = pin
	}
	for _, h := range signal.AllHeads() {
		if err := b.pins[h].Out(b.level(false)); err != nil {
			return nil, fmt.Errorf("periph: init %s on %s: %w", h, b.pins[h], err)
		}
	}
	return b, nil
}

func (b *Board) level(on bool) gpio.Level {
	return gpio.Level(on != b.activeLow)
}

// WriteSignal sets one head. A failed write is logged and counted; the
// controller never sees it.
func (b *Board) WriteSignal(h signal.Head, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pin := b.pins[h]
	if err := pin.Out(b.level(on)); err != nil {
		b.failures++
		b.logger.Error("signal write failed", "head", h.String(), "pin", pin.String(), "on", on, "error", err)
	}
}

// Failures returns how many writes have failed.
func (b *Board) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Dark turns every head off.
func (b *Board) Dark() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, h := range signal.AllHeads() {
		if err := b.pins[h].Out(b.level(false)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h, err))
		}
	}
	return errors.Join(errs...)
}

// Buttons reads one pulled-up input pin per button.
type Buttons struct {
	pins [input.NumButtons]gpio.PinIn
}

// NewButtons takes a pin for every button and configures it as a pulled-up input.
func NewButtons(pins map[input.Button]gpio.PinIn) (*Buttons, error) {
	b := &Buttons{}
	for _, btn := range input.Buttons {
		pin, ok := pins[btn]
		if !ok || pin == nil {
			return nil, fmt.Errorf("periph: no pin for button %s", btn)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("periph: init button %s on %s: %w", btn, pin, err)
		}
		b.pins[btn] = pin
	}
	return b, nil
}

// ReadButtonRaw reads the pin; low is pressed.
func (b *Buttons) ReadButtonRaw(btn input.Button) input.Level {
	if b.pins[btn].Read() == gpio.Low {
		return input.Pressed
	}
	return input.Released
}

// Lookup resolves a pin name.
type Lookup func(name string) gpio.PinIO

// Resolve looks up every named pin and builds the board and buttons.
func Resolve(signals map[signal.Head]string, buttons map[input.Button]string, lookup Lookup, opts ...Option) (*Board, *Buttons, error) {
	outs := make(map[signal.Head]gpio.PinOut, len(signals))
	for h, name := range signals {
		pin := lookup(name)
		if pin == nil {
			return nil, nil, fmt.Errorf("periph: head %s: pin %q not found", h, name)
		}
		outs[h] = pin
	}
	ins := make(map[input.Button]gpio.PinIn, len(buttons))
	for btn, name := range buttons {
		pin := lookup(name)
		if pin == nil {
			return nil, nil, fmt.Errorf("periph: button %s: pin %q not found", btn, name)
		}
		ins[btn] = pin
	}

	board, err := NewBoard(outs, opts...)
	if err != nil {
		return nil, nil, err
	}
	in, err := NewButtons(ins)
	if err != nil {
		return nil, nil, err
	}
	return board, in, nil
}

// Open initialises the host drivers and resolves pins from the host registry.
func Open(signals map[signal.Head]string, buttons map[input.Button]string, opts ...Option) (*Board, *Buttons, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph: host init: %w", err)
	}
	return Resolve(signals, buttons, gpioreg.ByName, opts...)
}
