package fsm

import (
	"sync"
	"testing"
)

// TestObserver is a mock observer for testing that captures all observer events
type TestObserver struct {
	mutex        sync.RWMutex
	Transitions  []TransitionEvent
	StateEnters  []StateEvent
	StateExits   []StateEvent
	EventRejects []EventRejectEvent
	Errors       []error
	Actions      []ActionEvent
	Started      int
	Stopped      int
	Guards       []GuardEvent
}

type TransitionEvent struct {
	From  string
	To    string
	Event Event
}

type StateEvent struct {
	State string
}

type EventRejectEvent struct {
	Event  Event
	Reason string
}

type ActionEvent struct {
	ActionType string
	State      string
}

type GuardEvent struct {
	From   string
	To     string
	Result bool
}

// NewTestObserver creates a new test observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnTransition(from string, to string, event Event, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Transitions = append(o.Transitions, TransitionEvent{From: from, To: to, Event: event})
}

func (o *TestObserver) OnStateEnter(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateEnters = append(o.StateEnters, StateEvent{State: state})
}

func (o *TestObserver) OnStateExit(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateExits = append(o.StateExits, StateEvent{State: state})
}

func (o *TestObserver) OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Guards = append(o.Guards, GuardEvent{From: from, To: to, Result: result})
}

func (o *TestObserver) OnEventRejected(event Event, reason string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.EventRejects = append(o.EventRejects, EventRejectEvent{Event: event, Reason: reason})
}

func (o *TestObserver) OnError(err error, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) OnActionExecution(actionType string, state string, event Event, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Actions = append(o.Actions, ActionEvent{ActionType: actionType, State: state})
}

func (o *TestObserver) OnMachineStarted(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started++
}

func (o *TestObserver) OnMachineStopped(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Stopped++
}

func (o *TestObserver) TransitionCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Transitions)
}

func (o *TestObserver) StateEnterCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.StateEnters)
}

func (o *TestObserver) StateExitCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.StateExits)
}

// EnteredStates returns the entered state IDs in order
func (o *TestObserver) EnteredStates() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	out := make([]string, 0, len(o.StateEnters))
	for _, e := range o.StateEnters {
		out = append(out, e.State)
	}
	return out
}

// createSimpleMachine creates a three state ring for testing
func createSimpleMachine(t *testing.T) Machine {
	t.Helper()
	definition, err := NewMachine().
		State("idle").Initial().
		To("running").On("start").
		State("running").
		To("stopped").On("stop").
		State("stopped").
		To("idle").On("reset").
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	return definition.CreateInstance()
}

// createChoiceMachine routes "decide" through a choice on the "condition" flag
func createChoiceMachine(t *testing.T) Machine {
	t.Helper()
	builder := NewMachine()
	builder.State("start").Initial().
		To("choice1").On("decide")
	builder.Choice("choice1").
		When(FlagSet("condition")).Label("condition").To("path_a").
		Otherwise("path_b")
	builder.State("path_a").To("start").On("back")
	builder.State("path_b").To("start").On("back")

	definition, err := builder.Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	return definition.CreateInstance()
}

// AssertState checks if machine is in expected state
func AssertState(t *testing.T, machine Machine, expectedState string) {
	t.Helper()
	if currentState := machine.CurrentState(); currentState != expectedState {
		t.Errorf("Expected state %s, got %s", expectedState, currentState)
	}
}

// AssertStateChanged checks if state transition occurred
func AssertStateChanged(t *testing.T, result *EventResult, expectedPrevious, expectedCurrent string) {
	t.Helper()
	if !result.StateChanged {
		t.Error("Expected state to change")
	}
	if result.PreviousState != expectedPrevious {
		t.Errorf("Expected previous state %s, got %s", expectedPrevious, result.PreviousState)
	}
	if result.CurrentState != expectedCurrent {
		t.Errorf("Expected current state %s, got %s", expectedCurrent, result.CurrentState)
	}
}

// AssertObserverCalled checks if observer methods were called expected number of times
func AssertObserverCalled(t *testing.T, observer *TestObserver, transitions, enters, exits int) {
	t.Helper()
	if observer.TransitionCount() != transitions {
		t.Errorf("Expected %d transitions, got %d", transitions, observer.TransitionCount())
	}
	if observer.StateEnterCount() != enters {
		t.Errorf("Expected %d state enters, got %d", enters, observer.StateEnterCount())
	}
	if observer.StateExitCount() != exits {
		t.Errorf("Expected %d state exits, got %d", exits, observer.StateExitCount())
	}
}
