package fsm

import (
	"errors"
	"fmt"
	"sort"
)

// MachineBuilder provides the main entry point for building state machines
type MachineBuilder interface {
	State(id string) StateBuilder
	Choice(id string) ChoiceBuilder

	Build() (MachineDefinition, error)
}

// StateBuilder handles atomic state configuration
type StateBuilder interface {
	To(target string) TransitionBuilder

	OnEntry(action ActionFunc) StateBuilder
	OnExit(action ActionFunc) StateBuilder
	Final() StateBuilder
	Initial() StateBuilder

	State(id string) StateBuilder
	Choice(id string) ChoiceBuilder
	Build() (MachineDefinition, error)
}

// TransitionBuilder handles transition configuration with inline actions
type TransitionBuilder interface {
	// Event binding
	On(event string) TransitionBuilder

	// Conditions
	When(guard GuardFunc) TransitionBuilder
	Unless(guard GuardFunc) TransitionBuilder

	// Actions
	Do(action ActionFunc) TransitionBuilder

	// Label describes the guard for diagrams
	Label(label string) TransitionBuilder

	// Multiple transitions from same state
	To(target string) TransitionBuilder

	State(id string) StateBuilder
	Choice(id string) ChoiceBuilder
	Build() (MachineDefinition, error)
}

// ChoiceBuilder handles choice pseudostate with conditions
type ChoiceBuilder interface {
	When(condition GuardFunc) ChoiceTransitionBuilder
	Otherwise(target string) ChoiceBuilder

	// Navigation back
	State(id string) StateBuilder
	Choice(id string) ChoiceBuilder
	Build() (MachineDefinition, error)
}

// ChoiceTransitionBuilder handles conditional transitions from choice
type ChoiceTransitionBuilder interface {
	To(target string) ChoiceBuilder
	Do(action ActionFunc) ChoiceTransitionBuilder
	Label(label string) ChoiceTransitionBuilder
}

type machineBuilderImpl struct {
	initialState string
	states       map[string]State
	order        []string
	transitions  []*Transition
	problems     []error
}

// NewMachine creates a new machine builder
func NewMachine() MachineBuilder {
	return &machineBuilderImpl{
		states: make(map[string]State),
	}
}

func (mb *machineBuilderImpl) State(id string) StateBuilder {
	if existing, ok := mb.states[id]; ok {
		if atomic, ok := existing.(*AtomicState); ok {
			return &stateBuilderImpl{machineBuilder: mb, state: atomic}
		}
		mb.problems = append(mb.problems, NewConfigurationError("State", fmt.Sprintf("state '%s' is already declared as a pseudostate", id)))
		return &stateBuilderImpl{machineBuilder: mb, state: NewAtomicState(id)}
	}
	state := NewAtomicState(id)
	mb.states[id] = state
	mb.order = append(mb.order, id)
	return &stateBuilderImpl{machineBuilder: mb, state: state}
}

func (mb *machineBuilderImpl) Choice(id string) ChoiceBuilder {
	if existing, ok := mb.states[id]; ok {
		if choice, ok := existing.(*ChoiceState); ok {
			return &choiceBuilderImpl{machineBuilder: mb, choiceState: choice}
		}
		mb.problems = append(mb.problems, NewConfigurationError("Choice", fmt.Sprintf("state '%s' is already declared as an atomic state", id)))
		return &choiceBuilderImpl{machineBuilder: mb, choiceState: NewChoiceState(id)}
	}
	choice := NewChoiceState(id)
	mb.states[id] = choice
	mb.order = append(mb.order, id)
	return &choiceBuilderImpl{machineBuilder: mb, choiceState: choice}
}

// Build validates the configuration and returns an immutable definition
func (mb *machineBuilderImpl) Build() (MachineDefinition, error) {
	if err := mb.validate(); err != nil {
		return nil, err
	}

	def := &machineDefinition{
		initialState: mb.initialState,
		states:       make(map[string]State, len(mb.states)),
		transitions:  make(map[string][]*Transition),
	}
	for id, s := range mb.states {
		def.states[id] = s
	}
	for _, t := range mb.transitions {
		copied := *t
		def.transitions[t.SourceState] = append(def.transitions[t.SourceState], &copied)
	}
	return def, nil
}

func (mb *machineBuilderImpl) validate() error {
	errs := append([]error(nil), mb.problems...)

	if mb.initialState == "" {
		errs = append(errs, NewConfigurationError("Machine", "no initial state defined"))
	} else if s, ok := mb.states[mb.initialState]; !ok {
		errs = append(errs, NewConfigurationError("Machine", fmt.Sprintf("initial state '%s' does not exist", mb.initialState)))
	} else if s.IsPseudo() {
		errs = append(errs, NewConfigurationError("Machine", fmt.Sprintf("initial state '%s' is a pseudostate", mb.initialState)))
	}

	for _, t := range mb.transitions {
		if t.EventName == "" {
			errs = append(errs, NewConfigurationError("Transition", fmt.Sprintf("transition %s -> %s has no event", t.SourceState, t.TargetState)))
		}
		if _, ok := mb.states[t.TargetState]; !ok {
			errs = append(errs, NewConfigurationError("Transition", fmt.Sprintf("transition %s -> %s targets an unknown state", t.SourceState, t.TargetState)))
		}
	}

	ids := make([]string, 0, len(mb.states))
	for id := range mb.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		choice, ok := mb.states[id].(*ChoiceState)
		if !ok {
			continue
		}
		if choice.DefaultTarget() == "" {
			errs = append(errs, NewConfigurationError("Choice", fmt.Sprintf("choice '%s' has no default target", id)))
		}
		for _, target := range choice.Targets() {
			if _, ok := mb.states[target]; !ok {
				errs = append(errs, NewConfigurationError("Choice", fmt.Sprintf("choice '%s' targets unknown state '%s'", id, target)))
			}
		}
	}

	return errors.Join(errs...)
}

type stateBuilderImpl struct {
	machineBuilder *machineBuilderImpl
	state          *AtomicState
}

func (sb *stateBuilderImpl) To(target string) TransitionBuilder {
	transition := NewTransition(sb.state.ID(), target, "")
	sb.machineBuilder.transitions = append(sb.machineBuilder.transitions, transition)
	return &transitionBuilderImpl{stateBuilder: sb, transition: transition}
}

func (sb *stateBuilderImpl) OnEntry(action ActionFunc) StateBuilder {
	sb.state.WithEntryAction(action)
	return sb
}

func (sb *stateBuilderImpl) OnExit(action ActionFunc) StateBuilder {
	sb.state.WithExitAction(action)
	return sb
}

func (sb *stateBuilderImpl) Final() StateBuilder {
	sb.state.final = true
	return sb
}

func (sb *stateBuilderImpl) Initial() StateBuilder {
	mb := sb.machineBuilder
	if mb.initialState != "" && mb.initialState != sb.state.ID() {
		mb.problems = append(mb.problems, NewConfigurationError("Machine",
			fmt.Sprintf("initial state already set to '%s', cannot also be '%s'", mb.initialState, sb.state.ID())))
		return sb
	}
	mb.initialState = sb.state.ID()
	return sb
}

func (sb *stateBuilderImpl) State(id string) StateBuilder {
	return sb.machineBuilder.State(id)
}

func (sb *stateBuilderImpl) Choice(id string) ChoiceBuilder {
	return sb.machineBuilder.Choice(id)
}

func (sb *stateBuilderImpl) Build() (MachineDefinition, error) {
	return sb.machineBuilder.Build()
}

type transitionBuilderImpl struct {
	stateBuilder *stateBuilderImpl
	transition   *Transition
}

func (tb *transitionBuilderImpl) On(event string) TransitionBuilder {
	tb.transition.EventName = event
	return tb
}

func (tb *transitionBuilderImpl) When(guard GuardFunc) TransitionBuilder {
	if existing := tb.transition.Guard; existing != nil {
		tb.transition.Guard = func(ctx Context) bool { return existing(ctx) && guard(ctx) }
		return tb
	}
	tb.transition.Guard = guard
	return tb
}

func (tb *transitionBuilderImpl) Unless(guard GuardFunc) TransitionBuilder {
	return tb.When(func(ctx Context) bool { return !guard(ctx) })
}

func (tb *transitionBuilderImpl) Do(action ActionFunc) TransitionBuilder {
	tb.transition.Action = action
	return tb
}

func (tb *transitionBuilderImpl) Label(label string) TransitionBuilder {
	tb.transition.Label = label
	return tb
}

func (tb *transitionBuilderImpl) To(target string) TransitionBuilder {
	return tb.stateBuilder.To(target)
}

func (tb *transitionBuilderImpl) State(id string) StateBuilder {
	return tb.stateBuilder.State(id)
}

func (tb *transitionBuilderImpl) Choice(id string) ChoiceBuilder {
	return tb.stateBuilder.Choice(id)
}

func (tb *transitionBuilderImpl) Build() (MachineDefinition, error) {
	return tb.stateBuilder.Build()
}

type choiceBuilderImpl struct {
	machineBuilder *machineBuilderImpl
	choiceState    *ChoiceState
}

func (cb *choiceBuilderImpl) When(condition GuardFunc) ChoiceTransitionBuilder {
	return &choiceTransitionBuilderImpl{
		choiceBuilder: cb,
		branch:        ChoiceBranch{Guard: condition},
	}
}

func (cb *choiceBuilderImpl) Otherwise(target string) ChoiceBuilder {
	cb.choiceState.SetDefaultTarget(target)
	return cb
}

func (cb *choiceBuilderImpl) State(id string) StateBuilder {
	return cb.machineBuilder.State(id)
}

func (cb *choiceBuilderImpl) Choice(id string) ChoiceBuilder {
	return cb.machineBuilder.Choice(id)
}

func (cb *choiceBuilderImpl) Build() (MachineDefinition, error) {
	return cb.machineBuilder.Build()
}

type choiceTransitionBuilderImpl struct {
	choiceBuilder *choiceBuilderImpl
	branch        ChoiceBranch
}

func (ctb *choiceTransitionBuilderImpl) To(target string) ChoiceBuilder {
	ctb.branch.Target = target
	ctb.choiceBuilder.choiceState.AddBranch(ctb.branch)
	return ctb.choiceBuilder
}

func (ctb *choiceTransitionBuilderImpl) Do(action ActionFunc) ChoiceTransitionBuilder {
	ctb.branch.Action = action
	return ctb
}

func (ctb *choiceTransitionBuilderImpl) Label(label string) ChoiceTransitionBuilder {
	ctb.branch.Label = label
	return ctb
}
