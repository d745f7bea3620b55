package controller

import (
	"github.com/anggasct/crossing/pkg/fsm"
	"github.com/anggasct/crossing/pkg/signal"
)

const (
	// EventDwellComplete is fired when the active phase's dwell has run out.
	EventDwellComplete = "dwell_complete"

	// KeyPedestrianRequested mirrors the pedestrian latch at each insertion point.
	KeyPedestrianRequested = "pedestrian_requested"

	// Insertion points, evaluated after each yellow.
	StateAfterAxisAYellow = "after_axis_a_yellow"
	StateAfterAxisBYellow = "after_axis_b_yellow"
)

// PhaseHooks are the side effects bound into the phase machine. Any of them may be nil.
type PhaseHooks struct {
	// OnPhaseEnter runs as each resident phase is entered.
	OnPhaseEnter func(p signal.Phase) error
	// OnGreenExit runs when an axis's green dwell ends.
	OnGreenExit func(axis signal.Axis) error
	// OnPedestrianExit runs when the walk dwell ends.
	OnPedestrianExit func() error
}

// PhaseMachine builds the fixed phase cycle
//
//	A-Green -> A-Yellow -> [Pedestrian] -> B-Green -> B-Yellow -> [Pedestrian] -> A-Green
//
// where each bracketed pedestrian phase is a choice taken only when
// KeyPedestrianRequested is set.
func PhaseMachine(h PhaseHooks) (fsm.MachineDefinition, error) {
	b := fsm.NewMachine()

	for _, axis := range signal.Axes {
		green := signal.GreenPhase(axis)
		yellow := signal.YellowPhase(axis)
		next := signal.GreenPhase(axis.Other())
		insertion := insertionPoint(axis)

		gs := b.State(green.String()).OnEntry(h.enter(green)).OnExit(h.greenExit(axis))
		if axis == signal.AxisA {
			gs.Initial()
		}
		gs.To(yellow.String()).On(EventDwellComplete)

		b.State(yellow.String()).OnEntry(h.enter(yellow)).
			To(insertion).On(EventDwellComplete)

		b.Choice(insertion).
			When(fsm.FlagSet(KeyPedestrianRequested)).Label("pedestrian requested").To(signal.Pedestrian.String()).
			Otherwise(next.String())
	}

	b.State(signal.Pedestrian.String()).OnEntry(h.enter(signal.Pedestrian)).OnExit(h.pedestrianExit()).
		To(signal.AxisBGreen.String()).On(EventDwellComplete).
		When(fsm.PreviousStateIs(signal.AxisAYellow.String())).Label("after axis_a_yellow").
		To(signal.AxisAGreen.String()).On(EventDwellComplete)

	return b.Build()
}

func insertionPoint(axis signal.Axis) string {
	if axis == signal.AxisA {
		return StateAfterAxisAYellow
	}
	return StateAfterAxisBYellow
}

func (h PhaseHooks) enter(p signal.Phase) fsm.ActionFunc {
	if h.OnPhaseEnter == nil {
		return nil
	}
	return func(fsm.Context) error { return h.OnPhaseEnter(p) }
}

func (h PhaseHooks) greenExit(axis signal.Axis) fsm.ActionFunc {
	if h.OnGreenExit == nil {
		return nil
	}
	return func(fsm.Context) error { return h.OnGreenExit(axis) }
}

func (h PhaseHooks) pedestrianExit() fsm.ActionFunc {
	if h.OnPedestrianExit == nil {
		return nil
	}
	return func(fsm.Context) error { return h.OnPedestrianExit() }
}
