package fsm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Machine represents a state machine instance
type Machine interface {
	Start() error
	Stop() error
	Reset() error

	CurrentState() string
	SetState(state string) error
	IsStarted() bool

	HandleEvent(eventName string, eventData any) *EventResult
	HandleEventWithContext(ctx context.Context, eventName string, eventData any) *EventResult

	AddObserver(observer Observer)
	RemoveObserver(observer Observer)

	Context() Context
}

// MachineDefinition represents the immutable configuration of a state machine
type MachineDefinition interface {
	CreateInstance() Machine

	GetInitialState() string
	GetStates() map[string]State
	GetTransitions() map[string][]Transition
}

// MachineState represents the lifecycle state of the machine
type MachineState int

const (
	// Machine is stopped and not processing events
	MachineStateStopped MachineState = iota
	// Machine is running and processing events
	MachineStateStarted
)

// machineDefinition is the validated result of a Builder
type machineDefinition struct {
	initialState string
	states       map[string]State
	transitions  map[string][]*Transition
}

// CreateInstance creates a fresh, stopped machine sharing this definition
func (d *machineDefinition) CreateInstance() Machine {
	sm := &StateMachine{
		definition:   d,
		observers:    NewObserverManager(),
		machineState: MachineStateStopped,
	}
	sm.context = NewContext(context.Background(), sm)
	return sm
}

// GetInitialState returns the initial state ID
func (d *machineDefinition) GetInitialState() string {
	return d.initialState
}

// GetStates returns a copy of the state table
func (d *machineDefinition) GetStates() map[string]State {
	out := make(map[string]State, len(d.states))
	for id, s := range d.states {
		out[id] = s
	}
	return out
}

// GetTransitions returns a copy of the transition table keyed by source state
func (d *machineDefinition) GetTransitions() map[string][]Transition {
	out := make(map[string][]Transition, len(d.transitions))
	for src, ts := range d.transitions {
		copied := make([]Transition, 0, len(ts))
		for _, t := range ts {
			copied = append(copied, *t)
		}
		out[src] = copied
	}
	return out
}

// StateMachine implements the Machine interface over a flat state table
type StateMachine struct {
	definition   *machineDefinition
	currentState string
	context      *StateMachineContext
	observers    *ObserverManager
	machineState MachineState
	mutex        sync.RWMutex
}

// safeEvaluateGuard safely evaluates a guard function with panic recovery
func safeEvaluateGuard(guard GuardFunc, ctx Context) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	result = guard(ctx)
	return result, nil
}

// safeExecuteAction safely executes an action function with panic recovery
func safeExecuteAction(action ActionFunc, ctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	err = action(ctx)
	return err
}

// Start enters the initial state and begins accepting events
func (sm *StateMachine) Start() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState == MachineStateStarted {
		return NewMachineError(ErrCodeInvalidState, "Start", "machine is already started")
	}

	initial := sm.definition.initialState
	state, exists := sm.definition.states[initial]
	if !exists {
		return NewConfigurationError("StateMachine", fmt.Sprintf("initial state '%s' does not exist", initial))
	}

	sm.machineState = MachineStateStarted
	sm.currentState = initial
	sm.context.reset(initial)

	sm.enter(state, nil)
	sm.observers.NotifyStateEnter(initial, sm.context)
	sm.observers.NotifyMachineStarted(sm.context)

	return nil
}

// Stop stops the state machine without running exit actions
func (sm *StateMachine) Stop() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewMachineNotStartedError("Stop")
	}

	if sm.currentState != "" {
		sm.observers.NotifyStateExit(sm.currentState, sm.context)
	}
	sm.observers.NotifyMachineStopped(sm.context)

	sm.machineState = MachineStateStopped
	return nil
}

// Reset stops the machine and rewinds it to the initial state
func (sm *StateMachine) Reset() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	previousState := sm.currentState
	sm.currentState = sm.definition.initialState
	sm.machineState = MachineStateStopped
	sm.context.reset(sm.currentState)

	if previousState != "" && previousState != sm.currentState {
		sm.observers.NotifyStateExit(previousState, sm.context)
		sm.observers.NotifyTransition(previousState, sm.currentState, nil, sm.context)
	}

	return nil
}

// CurrentState returns the current state
func (sm *StateMachine) CurrentState() string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// IsStarted reports whether the machine accepts events
func (sm *StateMachine) IsStarted() bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.machineState == MachineStateStarted
}

// SetState forces the current state without running entry or exit actions
func (sm *StateMachine) SetState(state string) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	target, exists := sm.definition.states[state]
	if !exists {
		return NewStateNotFoundError(state)
	}
	if target.IsPseudo() {
		return NewInvalidStateError(state, "pseudostates cannot be resident")
	}

	previousState := sm.currentState
	sm.currentState = state
	sm.context.updateTransitionInfo(previousState, state, nil)
	sm.context.updateCurrentState(state)

	if previousState != "" && previousState != state {
		sm.observers.NotifyStateExit(previousState, sm.context)
	}
	sm.observers.NotifyStateEnter(state, sm.context)
	if previousState != state {
		sm.observers.NotifyTransition(previousState, state, nil, sm.context)
	}

	return nil
}

// HandleEvent handles an event synchronously
func (sm *StateMachine) HandleEvent(eventName string, eventData any) *EventResult {
	return sm.HandleEventWithContext(context.Background(), eventName, eventData)
}

// HandleEventWithContext handles an event synchronously, refusing it when ctx is already done
func (sm *StateMachine) HandleEventWithContext(ctx context.Context, eventName string, eventData any) *EventResult {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection("machine is not started").
			WithError(NewMachineNotStartedError("HandleEvent"))
	}

	event := NewEvent(eventName, eventData)

	if strings.TrimSpace(eventName) == "" {
		reason := "event name cannot be empty"
		sm.observers.NotifyEventRejected(event, reason, sm.context)
		return sm.rejected(event, sm.currentState).
			WithRejection(reason).
			WithError(errors.New(reason))
	}

	if err := ctx.Err(); err != nil {
		reason := fmt.Sprintf("event '%s' cancelled: %v", eventName, err)
		sm.observers.NotifyEventRejected(event, reason, sm.context)
		return sm.rejected(event, sm.currentState).
			WithRejection(reason).
			WithError(err)
	}

	sm.context.updateCurrentEvent(event)

	transition, err := sm.findMatchingTransition(eventName, event)
	if err != nil {
		sm.observers.NotifyEventRejected(event, err.Error(), sm.context)
		return sm.rejected(event, sm.currentState).
			WithRejection(err.Error()).
			WithError(err)
	}

	previousState := sm.currentState

	// Transition action runs before any state change; failure aborts the transition
	if transition.Action != nil {
		sm.observers.NotifyActionExecution("transition", previousState, event, sm.context)
		if err := safeExecuteAction(transition.Action, sm.context); err != nil {
			actionErr := NewActionError("transition", previousState, err)
			sm.observers.NotifyError(actionErr, sm.context)
			sm.observers.NotifyEventRejected(event, actionErr.Error(), sm.context)
			return sm.rejected(event, previousState).WithError(actionErr)
		}
	}

	var errs []error

	if source, ok := sm.definition.states[previousState]; ok {
		if err := sm.exit(source, event); err != nil {
			errs = append(errs, err)
		}
	}
	sm.observers.NotifyStateExit(previousState, sm.context)

	sm.context.updateTransitionInfo(previousState, transition.TargetState, event)

	finalTarget, err := sm.resolvePseudoState(transition.TargetState, event)
	if err != nil {
		// The source has already been exited; stay put but surface the failure
		sm.observers.NotifyError(err, sm.context)
		errs = append(errs, err)
		finalTarget = previousState
	}

	sm.currentState = finalTarget
	sm.context.updateTransitionInfo(previousState, finalTarget, event)
	sm.context.updateCurrentState(finalTarget)

	if target, ok := sm.definition.states[finalTarget]; ok {
		if err := sm.enter(target, event); err != nil {
			errs = append(errs, err)
		}
	}

	sm.observers.NotifyTransition(previousState, finalTarget, event, sm.context)
	sm.observers.NotifyStateEnter(finalTarget, sm.context)

	result := NewEventResult(true, previousState != finalTarget, previousState, finalTarget)
	result.EventID = event.GetID()
	if len(errs) > 0 {
		result.WithError(errors.Join(errs...))
	}
	return result
}

func (sm *StateMachine) rejected(event Event, state string) *EventResult {
	r := NewEventResult(false, false, state, state)
	r.EventID = event.GetID()
	return r
}

// findMatchingTransition returns the first transition out of the current state
// for eventName whose guard holds, in declaration order.
func (sm *StateMachine) findMatchingTransition(eventName string, event Event) (*Transition, error) {
	candidates := sm.definition.transitions[sm.currentState]
	found := false
	for _, t := range candidates {
		if t.EventName != eventName {
			continue
		}
		found = true
		if t.Guard == nil {
			return t, nil
		}
		result, err := safeEvaluateGuard(t.Guard, sm.context)
		if err != nil {
			sm.observers.NotifyError(NewTransitionError(ErrCodeGuardRejected, t.SourceState, t.TargetState, eventName, err.Error()), sm.context)
			continue
		}
		sm.observers.NotifyGuardEvaluation(t.SourceState, t.TargetState, event, result, sm.context)
		if result {
			return t, nil
		}
	}
	if found {
		return nil, NewTransitionError(ErrCodeGuardRejected, sm.currentState, "", eventName,
			fmt.Sprintf("all guards rejected event '%s' in state '%s'", eventName, sm.currentState))
	}
	return nil, NewNoTransitionError(sm.currentState, eventName)
}

// resolvePseudoState follows choice pseudostates until a resident state is reached
func (sm *StateMachine) resolvePseudoState(stateID string, event Event) (string, error) {
	visited := make(map[string]bool)
	for {
		state, ok := sm.definition.states[stateID]
		if !ok {
			return "", NewStateNotFoundError(stateID)
		}
		choice, ok := state.(*ChoiceState)
		if !ok {
			return stateID, nil
		}
		if visited[stateID] {
			return "", NewInvalidStateError(stateID, "choice pseudostates form a cycle")
		}
		visited[stateID] = true

		target, action, err := choice.resolve(sm.context, func(target string, result bool) {
			sm.observers.NotifyGuardEvaluation(choice.ID(), target, event, result, sm.context)
		})
		if err != nil {
			return "", err
		}
		if action != nil {
			sm.observers.NotifyActionExecution("choice", choice.ID(), event, sm.context)
			if err := safeExecuteAction(action, sm.context); err != nil {
				sm.observers.NotifyError(NewActionError("choice", choice.ID(), err), sm.context)
			}
		}
		stateID = target
	}
}

func (sm *StateMachine) enter(state State, event Event) error {
	sm.observers.NotifyActionExecution("entry", state.ID(), event, sm.context)
	if err := state.Enter(sm.context); err != nil {
		sm.observers.NotifyError(err, sm.context)
		return err
	}
	return nil
}

func (sm *StateMachine) exit(state State, event Event) error {
	sm.observers.NotifyActionExecution("exit", state.ID(), event, sm.context)
	if err := state.Exit(sm.context); err != nil {
		sm.observers.NotifyError(err, sm.context)
		return err
	}
	return nil
}

// AddObserver adds an observer to the state machine
func (sm *StateMachine) AddObserver(observer Observer) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.observers.AddObserver(observer)
}

// RemoveObserver removes an observer from the state machine
func (sm *StateMachine) RemoveObserver(observer Observer) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.observers.RemoveObserver(observer)
}

// Context returns the machine's execution context
func (sm *StateMachine) Context() Context {
	return sm.context
}
