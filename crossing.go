// Package crossing runs a two-axis signalized intersection with a pedestrian
// phase. Green time on each axis grows with the traffic counted while that
// axis waited at red, and a pedestrian request inserts a walk phase after the
// next yellow.
//
// The root package wires the pieces in pkg/ together: configuration, the
// phase controller, the conflict monitor on the signal outputs and the
// observers on the phase machine. Programs that need finer control can use
// the packages directly.
package crossing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/controller"
	"github.com/anggasct/crossing/pkg/observers"
	"github.com/anggasct/crossing/pkg/safety"
	"github.com/anggasct/crossing/pkg/signal"
)

// Core types
type (
	// Phase is the active right-of-way assignment
	Phase = signal.Phase

	// Settings are the tunable parts of a controller
	Settings = controller.Settings

	// Hardware is what a controller writes to and reads from
	Hardware = controller.Hardware

	// Snapshot is a consistent view of a running controller
	Snapshot = controller.Snapshot

	// Config is the YAML configuration file
	Config = config.Config
)

// Phases
const (
	AxisAGreen  = signal.AxisAGreen
	AxisAYellow = signal.AxisAYellow
	AxisBGreen  = signal.AxisBGreen
	AxisBYellow = signal.AxisBYellow
	Pedestrian  = signal.Pedestrian
)

// Intersection is a controller with its monitor and observers attached.
type Intersection struct {
	*controller.Controller

	Monitor    *safety.Monitor
	Metrics    *observers.MetricsObserver
	Validation *observers.ValidationObserver
	Logging    *observers.LoggingObserver
}

// New builds an intersection from a configuration. Signal writes from the
// controller pass through a conflict monitor before reaching hw.Signals.
// A nil logger uses the one described by cfg, writing to stderr.
func New(cfg Config, hw Hardware, logger *slog.Logger) (*Intersection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cfg.Logger(os.Stderr)
	}
	if hw.Signals == nil {
		return nil, errors.New("crossing: hardware has no signal writer")
	}

	monitor := safety.NewMonitor(hw.Signals, safety.WithLogger(logger))
	hw.Signals = monitor

	definition, err := controller.PhaseMachine(controller.PhaseHooks{})
	if err != nil {
		return nil, fmt.Errorf("crossing: %w", err)
	}

	x := &Intersection{
		Monitor:    monitor,
		Metrics:    observers.NewMetricsObserver(),
		Validation: observers.NewValidationObserverFor(definition),
		Logging:    observers.NewLoggingObserver(logger, "phase_machine"),
	}
	x.Controller, err = controller.New(settings, hw,
		controller.WithLogger(logger),
		controller.WithObserver(x.Logging),
		controller.WithObserver(x.Metrics),
		controller.WithObserver(x.Validation),
	)
	if err != nil {
		return nil, err
	}
	return x, nil
}

// Run starts the intersection and cycles until ctx is done. The signals are
// left all red when it returns.
func (x *Intersection) Run(ctx context.Context) error {
	err := x.Controller.Run(ctx)
	if !x.Machine().IsStarted() {
		return err
	}
	if shutdownErr := x.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// Healthy reports whether no conflicting aspect was ever written and the
// phase machine never left its transition table.
func (x *Intersection) Healthy() bool {
	return x.Monitor.Healthy() && !x.Validation.HasViolations()
}
