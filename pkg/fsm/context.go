package fsm

import (
	"context"
	"sync"
)

// Context provides access to data and information during state machine execution
type Context interface {
	context.Context

	Get(key string) (any, bool)
	Set(key string, value any)
	GetAll() map[string]any

	GetMachine() Machine
	GetCurrentState() string
	GetSourceState() string
	GetTargetState() string
	GetPreviousState() string

	GetCurrentEvent() Event
	GetEventName() string
	GetEventData() any
}

// StateMachineContext implements the Context interface
type StateMachineContext struct {
	context.Context
	data          map[string]any
	machine       Machine
	currentState  string
	sourceState   string
	targetState   string
	previousState string
	currentEvent  Event

	mutex sync.RWMutex
}

// NewContext creates a new state machine context
func NewContext(parent context.Context, machine Machine) *StateMachineContext {
	return &StateMachineContext{
		Context: parent,
		data:    make(map[string]any),
		machine: machine,
	}
}

// NewSimpleContext creates a detached context, handy in tests
func NewSimpleContext() *StateMachineContext {
	return NewContext(context.Background(), nil)
}

// Get retrieves a value from the context
func (ctx *StateMachineContext) Get(key string) (any, bool) {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	value, exists := ctx.data[key]
	return value, exists
}

// Set stores a value in the context
func (ctx *StateMachineContext) Set(key string, value any) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.data[key] = value
}

// GetAll returns a copy of all context data
func (ctx *StateMachineContext) GetAll() map[string]any {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	result := make(map[string]any, len(ctx.data))
	for k, v := range ctx.data {
		result[k] = v
	}
	return result
}

// GetMachine returns the associated state machine
func (ctx *StateMachineContext) GetMachine() Machine {
	return ctx.machine
}

// GetCurrentState returns the current state ID
func (ctx *StateMachineContext) GetCurrentState() string {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	return ctx.currentState
}

// GetSourceState returns the source state of the current transition
func (ctx *StateMachineContext) GetSourceState() string {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	return ctx.sourceState
}

// GetTargetState returns the target state of the current transition
func (ctx *StateMachineContext) GetTargetState() string {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	return ctx.targetState
}

// GetPreviousState returns the state the last completed transition left
func (ctx *StateMachineContext) GetPreviousState() string {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	return ctx.previousState
}

// GetCurrentEvent returns the current event being processed
func (ctx *StateMachineContext) GetCurrentEvent() Event {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	return ctx.currentEvent
}

// GetEventName returns the name of the current event
func (ctx *StateMachineContext) GetEventName() string {
	if event := ctx.GetCurrentEvent(); event != nil {
		return event.GetName()
	}
	return ""
}

// GetEventData returns the data of the current event
func (ctx *StateMachineContext) GetEventData() any {
	if event := ctx.GetCurrentEvent(); event != nil {
		return event.GetData()
	}
	return nil
}

// updateTransitionInfo records the transition being taken
func (ctx *StateMachineContext) updateTransitionInfo(sourceState, targetState string, event Event) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.sourceState = sourceState
	ctx.targetState = targetState
	ctx.currentEvent = event
	if sourceState != "" {
		ctx.previousState = sourceState
	}
}

// updateCurrentState updates only the current state
func (ctx *StateMachineContext) updateCurrentState(state string) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.currentState = state
}

// updateCurrentEvent updates only the current event
func (ctx *StateMachineContext) updateCurrentEvent(event Event) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.currentEvent = event
}

// reset clears transition bookkeeping but keeps user data
func (ctx *StateMachineContext) reset(state string) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.currentState = state
	ctx.sourceState = ""
	ctx.targetState = ""
	ctx.previousState = ""
	ctx.currentEvent = nil
}

// Bool reads a boolean flag from the context, false when unset or mistyped
func Bool(ctx Context, key string) bool {
	if v, ok := ctx.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// PreviousStateIs returns a guard that holds when the last transition left state
func PreviousStateIs(state string) GuardFunc {
	return func(ctx Context) bool {
		return ctx.GetPreviousState() == state
	}
}

// FlagSet returns a guard that holds when the boolean context flag is true
func FlagSet(key string) GuardFunc {
	return func(ctx Context) bool {
		return Bool(ctx, key)
	}
}
