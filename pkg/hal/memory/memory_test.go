package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/status"
)

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)

	c.Sleep(1500 * time.Millisecond)
	c.Sleep(-time.Second)
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
	assert.Equal(t, start.Add(1500*time.Millisecond), c.Now())
}

func TestBoard(t *testing.T) {
	b := NewBoard()
	b.WriteSignal(signal.HeadAxisARed, true)
	b.WriteSignal(signal.HeadAxisARed, false)
	b.WriteSignal(signal.HeadAxisAGreen, true)

	assert.Equal(t, []signal.Head{signal.HeadAxisAGreen}, b.Aspect().LitHeads())
	assert.Len(t, b.Writes(), 3)

	b.ClearWrites()
	assert.Empty(t, b.Writes())
	assert.True(t, b.Aspect().Lit(signal.HeadAxisAGreen))
}

func TestButtons_Script(t *testing.T) {
	c := NewClock(time.Unix(0, 0))
	b := NewButtons(c).PressAt(input.ButtonPedestrian, 2*time.Second, 100*time.Millisecond)

	assert.Equal(t, input.Released, b.ReadButtonRaw(input.ButtonPedestrian))
	c.Advance(2 * time.Second)
	assert.Equal(t, input.Pressed, b.ReadButtonRaw(input.ButtonPedestrian))
	assert.Equal(t, input.Released, b.ReadButtonRaw(input.ButtonAxisA))
	c.Advance(100 * time.Millisecond)
	assert.Equal(t, input.Released, b.ReadButtonRaw(input.ButtonPedestrian))
}

func TestButtons_Override(t *testing.T) {
	b := NewButtons(NewClock(time.Unix(0, 0)))
	b.Hold(input.ButtonAxisB)
	assert.Equal(t, input.Pressed, b.ReadButtonRaw(input.ButtonAxisB))
	b.Release(input.ButtonAxisB)
	assert.Equal(t, input.Released, b.ReadButtonRaw(input.ButtonAxisB))
}

func TestDisplay(t *testing.T) {
	d := NewDisplay()
	_, ok := d.Last()
	assert.False(t, ok)

	d.ShowStatus("PEDESTRIAN", "STOP")
	last, ok := d.Last()
	assert.True(t, ok)
	assert.Equal(t, status.Message{Line1: "PEDESTRIAN", Line2: "STOP"}, last)
	assert.True(t, d.Contains(last))
	assert.Len(t, d.Messages(), 1)
}
