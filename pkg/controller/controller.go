// Package controller runs the intersection: it owns the phase machine, the
// traffic counters and the pedestrian latch, and drives dwells tick by tick
// while polling the buttons.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anggasct/crossing/pkg/demand"
	"github.com/anggasct/crossing/pkg/fsm"
	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/status"
	"github.com/anggasct/crossing/pkg/timing"
)

// ErrNotStarted is returned by Step before Start.
var ErrNotStarted = errors.New("controller: not started")

// Settings are the tunable parts of the controller.
type Settings struct {
	Timing   timing.Policy
	Counting demand.Policy
	Labels   status.Labels

	// Tick is one time unit of every dwell.
	Tick time.Duration
	// SubTicks is how many times the buttons are polled per tick.
	SubTicks int
	// StopHold is how long "STOP" stays up after the walk phase.
	StopHold time.Duration
	// ReadyHold is the pause between safe outputs and the first green.
	ReadyHold time.Duration
}

// DefaultSettings are the stock cabinet timings.
func DefaultSettings() Settings {
	return Settings{
		Timing:    timing.DefaultPolicy(),
		Counting:  demand.Canonical(),
		Labels:    status.DefaultLabels(),
		Tick:      timing.DefaultTick,
		SubTicks:  timing.DefaultSubTicks,
		StopHold:  500 * time.Millisecond,
		ReadyHold: time.Second,
	}
}

// Validate reports the first unusable setting.
func (s Settings) Validate() error {
	if err := s.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	if s.Counting.Max < 0 {
		return fmt.Errorf("counting: max must not be negative, got %d", s.Counting.Max)
	}
	if s.Tick < 0 || s.StopHold < 0 || s.ReadyHold < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Hardware is everything the controller touches outside itself.
type Hardware struct {
	Signals signal.Writer
	Buttons input.Reader
	// Display defaults to status.Discard.
	Display status.Presenter
	// Clock defaults to the wall clock.
	Clock timing.Clock
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver attaches an observer to the phase machine.
func WithObserver(observer fsm.Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, observer)
	}
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	ID                string
	Started           bool
	Phase             signal.Phase
	Dwell             int
	Remaining         int
	Counts            [2]int
	PedestrianPending bool
	Cycles            uint64
	Aspect            signal.Aspect
}

// Controller sequences the phase cycle. Step, Run and RunCycle must be called
// from a single goroutine; Snapshot may be called from any.
type Controller struct {
	id        string
	settings  Settings
	hw        Hardware
	logger    *slog.Logger
	observers []fsm.Observer

	definition fsm.MachineDefinition
	machine    fsm.Machine
	projector  *signal.Projector
	sampler    *input.Sampler
	dweller    *timing.Dweller
	format     status.Formatter
	counters   demand.Counters
	latch      demand.Latch

	mu        sync.RWMutex
	phase     signal.Phase
	green     timing.Breakdown
	dwell     int
	remaining int
	cycles    uint64
	started   bool
}

// New wires a controller to its hardware. The controller is idle until Start.
func New(settings Settings, hw Hardware, opts ...Option) (*Controller, error) {
	if hw.Signals == nil {
		return nil, errors.New("controller: hardware has no signal writer")
	}
	if hw.Buttons == nil {
		return nil, errors.New("controller: hardware has no button reader")
	}
	if hw.Display == nil {
		hw.Display = status.Discard
	}
	if hw.Clock == nil {
		hw.Clock = timing.SystemClock{}
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	c := &Controller{
		id:       uuid.New().String(),
		settings: settings,
		hw:       hw,
		logger:   slog.Default(),
		format:   status.NewFormatter(settings.Labels),
		counters: demand.NewCounters(settings.Counting),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("controller", c.id)

	c.projector = signal.NewProjector(hw.Signals)
	c.sampler = input.NewSampler(hw.Buttons, c.onPress)
	c.dweller = timing.NewDweller(hw.Clock, settings.Tick, settings.SubTicks)

	definition, err := PhaseMachine(PhaseHooks{
		OnPhaseEnter:     c.enterPhase,
		OnGreenExit:      c.exitGreen,
		OnPedestrianExit: c.exitPedestrian,
	})
	if err != nil {
		return nil, fmt.Errorf("controller: phase machine: %w", err)
	}
	c.definition = definition
	c.machine = definition.CreateInstance()
	for _, o := range c.observers {
		c.machine.AddObserver(o)
	}

	return c, nil
}

// ID identifies this controller instance in logs.
func (c *Controller) ID() string { return c.id }

// Settings returns the settings the controller runs with.
func (c *Controller) Settings() Settings { return c.settings }

// Machine returns the running phase machine.
func (c *Controller) Machine() fsm.Machine { return c.machine }

// Definition returns the phase machine definition.
func (c *Controller) Definition() fsm.MachineDefinition { return c.definition }

// GreenSeconds returns the green dwell this controller grants for counter.
func (c *Controller) GreenSeconds(counter int) int {
	return c.settings.Timing.GreenSeconds(counter)
}

// GreenSeconds returns the default green dwell for counter: 10, 20, 30 or 40.
func GreenSeconds(counter int) int {
	return timing.DefaultPolicy().GreenSeconds(counter)
}

// Start runs the power-on sequence and enters Axis-A green.
func (c *Controller) Start() error {
	if c.machine.IsStarted() {
		return fsm.NewMachineError(fsm.ErrCodeInvalidState, "Start", "controller already started")
	}

	c.show(c.format.Starting())
	c.projector.Safe()
	c.show(c.format.Ready())
	c.dweller.Hold(c.settings.ReadyHold)

	if err := c.machine.Start(); err != nil {
		return fmt.Errorf("controller: start: %w", err)
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	c.logger.Info("controller started",
		"base_green", c.settings.Timing.BaseGreen,
		"table", c.settings.Timing.Table.Name,
		"counting", c.settings.Counting.Mode.String())
	return nil
}

// Shutdown stops the phase machine and leaves every group red.
func (c *Controller) Shutdown() error {
	if err := c.machine.Stop(); err != nil {
		return fmt.Errorf("controller: shutdown: %w", err)
	}
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
	c.projector.Safe()
	c.logger.Info("controller stopped", "cycles", c.Snapshot().Cycles)
	return nil
}

// Step runs the active phase's whole dwell, then advances the machine. It
// returns the phase now active. ctx is only consulted before the dwell starts.
func (c *Controller) Step(ctx context.Context) (signal.Phase, error) {
	phase := c.Phase()
	if err := ctx.Err(); err != nil {
		return phase, err
	}
	if !c.machine.IsStarted() {
		return phase, ErrNotStarted
	}

	c.mu.RLock()
	ticks := c.dwell
	c.mu.RUnlock()

	c.dweller.Dwell(ticks, func(remaining int) {
		c.mu.Lock()
		c.remaining = remaining
		c.mu.Unlock()
		c.showTick(phase, remaining)
	}, func() {
		c.sampler.Sample()
	})

	c.mu.Lock()
	c.remaining = 0
	c.mu.Unlock()

	c.machine.Context().Set(KeyPedestrianRequested, c.latch.Pending())
	result := c.machine.HandleEvent(EventDwellComplete, phase.String())
	if !result.Processed {
		return phase, fmt.Errorf("controller: leaving %s: %w", phase, result.Error)
	}
	if result.Error != nil {
		// outputs or display misbehaved; the cycle carries on regardless
		c.logger.Warn("phase actions reported errors", "from", phase.String(), "error", result.Error)
	}

	next, err := signal.ParsePhase(result.CurrentState)
	if err != nil {
		return phase, fmt.Errorf("controller: %w", err)
	}
	if next == signal.AxisAGreen {
		c.mu.Lock()
		c.cycles++
		c.mu.Unlock()
	}
	return next, nil
}

// RunCycle steps until Axis-A green is active again.
func (c *Controller) RunCycle(ctx context.Context) error {
	for {
		next, err := c.Step(ctx)
		if err != nil {
			return err
		}
		if next == signal.AxisAGreen {
			return nil
		}
	}
}

// Run starts the controller if needed and cycles until ctx is done. It
// returns ctx.Err() after the phase in progress completes.
func (c *Controller) Run(ctx context.Context) error {
	if !c.machine.IsStarted() {
		if err := c.Start(); err != nil {
			return err
		}
	}
	for {
		if _, err := c.Step(ctx); err != nil {
			return err
		}
	}
}

// Phase returns the active phase.
func (c *Controller) Phase() signal.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Snapshot returns the controller's current state.
func (c *Controller) Snapshot() Snapshot {
	// the projector lock is never taken while holding c.mu
	aspect := c.projector.Aspect()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		ID:                c.id,
		Started:           c.started,
		Phase:             c.phase,
		Dwell:             c.dwell,
		Remaining:         c.remaining,
		Counts:            [2]int{c.counters[signal.AxisA].Value(), c.counters[signal.AxisB].Value()},
		PedestrianPending: c.latch.Pending(),
		Cycles:            c.cycles,
		Aspect:            aspect,
	}
}

func (c *Controller) enterPhase(p signal.Phase) error {
	var green timing.Breakdown
	ticks := c.settings.Timing.Dwell(p, 0)
	if axis, ok := p.Axis(); ok && p.IsGreen() {
		green = c.settings.Timing.GreenBreakdown(c.counters[axis].Value())
		ticks = green.Total()
	}

	c.mu.Lock()
	c.phase = p
	c.green = green
	c.dwell = ticks
	c.remaining = ticks
	c.mu.Unlock()

	c.projector.Apply(p)
	c.logger.Debug("phase entered", "phase", p.String(), "dwell", ticks)
	return nil
}

func (c *Controller) exitGreen(axis signal.Axis) error {
	served := c.counters[axis].Reset()
	c.logger.Debug("counter reset", "axis", axis.String(), "served", served)
	return nil
}

func (c *Controller) exitPedestrian() error {
	c.projector.Safe()
	c.show(c.format.PedestrianStop())
	c.dweller.Hold(c.settings.StopHold)
	c.latch.Clear()
	return nil
}

func (c *Controller) showTick(p signal.Phase, remaining int) {
	axis, served := p.Axis()
	if !served {
		c.show(c.format.Pedestrian(remaining))
		return
	}
	other := c.counters[axis.Other()].Value()
	if p.IsGreen() {
		c.mu.RLock()
		green := c.green
		c.mu.RUnlock()
		c.show(c.format.Green(axis, green, remaining, other))
		return
	}
	c.show(c.format.Yellow(axis, remaining, other))
}

func (c *Controller) show(m status.Message) {
	m.Show(c.hw.Display)
}
