package observers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anggasct/crossing/pkg/fsm"
)

// ValidationObserver checks a running machine against the transitions it is
// allowed to take and records anything else as a violation.
type ValidationObserver struct {
	fsm.BaseObserver

	expectedStates     map[string]bool
	visitedStates      map[string]bool
	allowedTransitions map[string]map[string]bool
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a new validation observer
func NewValidationObserver() *ValidationObserver {
	return &ValidationObserver{
		expectedStates:     make(map[string]bool),
		visitedStates:      make(map[string]bool),
		allowedTransitions: make(map[string]map[string]bool),
		violations:         make([]string, 0),
	}
}

// NewValidationObserverFor expects every resident state of def and allows
// exactly its transitions. A transition into a choice pseudostate is allowed
// to land on any of the choice's targets.
func NewValidationObserverFor(def fsm.MachineDefinition) *ValidationObserver {
	o := NewValidationObserver()
	states := def.GetStates()

	for id, s := range states {
		if !s.IsPseudo() {
			o.AddExpectedState(id)
		}
	}
	for source, transitions := range def.GetTransitions() {
		for _, t := range transitions {
			for _, target := range landing(states, t.TargetState, map[string]bool{}) {
				o.AddAllowedTransition(source, target)
			}
		}
	}
	return o
}

// landing follows choice pseudostates to the resident states they can reach.
func landing(states map[string]fsm.State, target string, seen map[string]bool) []string {
	choice, ok := states[target].(*fsm.ChoiceState)
	if !ok {
		return []string{target}
	}
	if seen[target] {
		return nil
	}
	seen[target] = true

	var out []string
	for _, next := range choice.Targets() {
		out = append(out, landing(states, next, seen)...)
	}
	return out
}

// AddExpectedState adds an expected state
func (o *ValidationObserver) AddExpectedState(stateName string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.expectedStates[stateName] = true
}

// AddAllowedTransition adds an allowed transition
func (o *ValidationObserver) AddAllowedTransition(from, to string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[string]bool)
	}
	o.allowedTransitions[from][to] = true
}

// OnStateEnter marks the state visited
func (o *ValidationObserver) OnStateEnter(state string, _ fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates[state] = true
	if len(o.expectedStates) > 0 && !o.expectedStates[state] {
		o.violations = append(o.violations, fmt.Sprintf("Unexpected state '%s'", state))
	}
}

// OnTransition validates transitions
func (o *ValidationObserver) OnTransition(from, to string, event fsm.Event, _ fsm.Context) {
	// forced moves carry no event
	if event == nil || from == "" {
		return
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	if allowed, exists := o.allowedTransitions[from]; !exists || !allowed[to] {
		o.violations = append(o.violations, fmt.Sprintf(
			"Invalid transition from '%s' to '%s' on event '%s'",
			from, to, event.GetName()))
	}
}

// OnError records every error as a violation
func (o *ValidationObserver) OnError(err error, _ fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Sprintf("Error occurred: %v", err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// GetUnvisitedStates returns expected states not visited yet, sorted
func (o *ValidationObserver) GetUnvisitedStates() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []string
	for state := range o.expectedStates {
		if !o.visitedStates[state] {
			unvisited = append(unvisited, state)
		}
	}
	sort.Strings(unvisited)
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates = make(map[string]bool)
	o.violations = make([]string, 0)
}
