package controller

import (
	"github.com/anggasct/crossing/pkg/demand"
	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
)

// onPress is the sampler's handler. It runs on the control goroutine between sub-ticks.
func (c *Controller) onPress(b input.Button) {
	axis, isCount := b.Axis()
	if !isCount {
		c.requestPedestrian()
		return
	}
	c.countVehicle(axis)
}

func (c *Controller) requestPedestrian() {
	fresh := c.latch.Set()
	c.logger.Debug("pedestrian request", "phase", c.Phase().String(), "already_pending", !fresh)
	c.show(c.format.RequestReceived())
}

func (c *Controller) countVehicle(axis signal.Axis) {
	phase := c.Phase()
	counter := c.counters[axis]
	outcome := c.settings.Counting.Record(counter, phase.IsRedFor(axis))
	value := counter.Value()

	c.logger.Debug("count press",
		"axis", axis.String(),
		"phase", phase.String(),
		"outcome", outcome.String(),
		"count", value)

	switch outcome {
	case demand.Counted:
		if c.settings.Counting.Mode == demand.Unconditional {
			c.show(c.format.TrafficCount(axis, value))
		} else {
			c.show(c.format.Counted(axis, value))
		}
	case demand.NotRed:
		c.show(c.format.NotCounted(axis))
	case demand.Capped:
		c.show(c.format.AtCap(axis, value))
	}
}
