// Package console stands in for the cabinet on a terminal: the status
// display is printed as a framed LCD and keys pulse the buttons.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
)

// DefaultWidth is a 16x2 character LCD.
const DefaultWidth = 16

// Display prints every status update as two fixed-width lines.
type Display struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	last  [2]string
}

// NewDisplay writes to out. Lines are cut or padded to width columns.
func NewDisplay(out io.Writer, width int) *Display {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Display{out: out, width: width}
}

// ShowStatus implements status.Presenter.
func (d *Display) ShowStatus(line1, line2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = [2]string{d.fit(line1), d.fit(line2)}
	border := "+" + strings.Repeat("-", d.width) + "+"
	fmt.Fprintf(d.out, "%s\n|%s|\n|%s|\n%s\n", border, d.last[0], d.last[1], border)
}

// Lines returns what the display shows now.
func (d *Display) Lines() (string, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last[0], d.last[1]
}

func (d *Display) fit(s string) string {
	s = lo.Substring(s, 0, uint(d.width))
	if pad := d.width - len([]rune(s)); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// Keyboard turns key presses into button presses. Each pulse reads as
// pressed for exactly one sample, followed by at least one released sample.
type Keyboard struct {
	mu      sync.Mutex
	pending [input.NumButtons]int
	high    [input.NumButtons]bool
}

// NewKeyboard creates a keyboard with no pending pulses.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// KeyButton maps a key to a button: a or 1 for Axis-A, b or 2 for Axis-B,
// p or 3 for the pedestrian button.
func KeyButton(key rune) (input.Button, bool) {
	switch key {
	case 'a', 'A', '1':
		return input.ButtonAxisA, true
	case 'b', 'B', '2':
		return input.ButtonAxisB, true
	case 'p', 'P', '3':
		return input.ButtonPedestrian, true
	default:
		return 0, false
	}
}

// Pulse queues one press of b.
func (k *Keyboard) Pulse(b input.Button) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending[b]++
}

// Pending returns the pulses of b not yet sampled.
func (k *Keyboard) Pending(b input.Button) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pending[b]
}

// ReadButtonRaw implements input.Reader.
func (k *Keyboard) ReadButtonRaw(b input.Button) input.Level {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.high[b] {
		k.high[b] = false
		return input.Released
	}
	if k.pending[b] > 0 {
		k.pending[b]--
		k.high[b] = true
		return input.Pressed
	}
	return input.Released
}

// Listen reads keys from r until ctx is done or r is exhausted. Unknown keys
// are ignored. It returns nil at end of input.
func (k *Keyboard) Listen(ctx context.Context, r io.Reader) error {
	keys := make(chan rune)
	errs := make(chan error, 1)

	go func() {
		defer close(keys)
		br := bufio.NewReader(r)
		for {
			key, _, err := br.ReadRune()
			if err != nil {
				if err != io.EOF {
					errs <- err
				}
				return
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-keys:
			if !ok {
				select {
				case err := <-errs:
					return fmt.Errorf("console: keyboard: %w", err)
				default:
					return nil
				}
			}
			if b, known := KeyButton(key); known {
				k.Pulse(b)
			}
		}
	}
}

// Lamps renders an aspect as one line of colored letters, e.g.
// "NS:G EW:r WALK:r". Red is lower case; a dark or mixed group is "?".
func Lamps(a signal.Aspect, axisA, axisB string) string {
	letter := func(g signal.Group) string {
		c, ok := a.ColorOf(g)
		if !ok {
			return "?"
		}
		s := c.String()[:1]
		if c == signal.Red {
			return strings.ToLower(s)
		}
		return strings.ToUpper(s)
	}
	return fmt.Sprintf("%s:%s %s:%s WALK:%s",
		axisA, letter(signal.GroupAxisA),
		axisB, letter(signal.GroupAxisB),
		letter(signal.GroupPedestrian))
}
