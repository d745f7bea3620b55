package fsm

// State represents a state in the state machine
type State interface {
	ID() string
	Enter(ctx Context) error
	Exit(ctx Context) error
	IsPseudo() bool
	IsFinal() bool
}

// ActionFunc represents an action function with error support
type ActionFunc func(ctx Context) error

// GuardFunc represents a guard condition function
type GuardFunc func(ctx Context) bool

// AtomicState is a simple state with optional entry and exit actions
type AtomicState struct {
	id          string
	entryAction ActionFunc
	exitAction  ActionFunc
	final       bool
}

// NewAtomicState creates a new atomic state
func NewAtomicState(id string) *AtomicState {
	return &AtomicState{id: id}
}

// NewFinalState creates a new final state
func NewFinalState(id string) *AtomicState {
	return &AtomicState{id: id, final: true}
}

// ID returns the state identifier
func (s *AtomicState) ID() string {
	return s.id
}

// Enter executes the entry action
func (s *AtomicState) Enter(ctx Context) error {
	if s.entryAction == nil {
		return nil
	}
	if err := safeExecuteAction(s.entryAction, ctx); err != nil {
		return NewActionError("entry", s.id, err)
	}
	return nil
}

// Exit executes the exit action
func (s *AtomicState) Exit(ctx Context) error {
	if s.exitAction == nil {
		return nil
	}
	if err := safeExecuteAction(s.exitAction, ctx); err != nil {
		return NewActionError("exit", s.id, err)
	}
	return nil
}

// IsPseudo returns false for atomic states
func (s *AtomicState) IsPseudo() bool {
	return false
}

// IsFinal returns whether this is a final state
func (s *AtomicState) IsFinal() bool {
	return s.final
}

// WithEntryAction sets the entry action for the state
func (s *AtomicState) WithEntryAction(action ActionFunc) *AtomicState {
	s.entryAction = action
	return s
}

// WithExitAction sets the exit action for the state
func (s *AtomicState) WithExitAction(action ActionFunc) *AtomicState {
	s.exitAction = action
	return s
}

// ChoiceBranch is one guarded outgoing branch of a choice pseudostate
type ChoiceBranch struct {
	Guard  GuardFunc
	Target string
	Action ActionFunc
	Label  string
}

// ChoiceState is a transient pseudostate that picks the first branch whose
// guard holds, or its default target when none do.
type ChoiceState struct {
	id            string
	branches      []ChoiceBranch
	defaultTarget string
}

// NewChoiceState creates a new choice pseudostate
func NewChoiceState(id string) *ChoiceState {
	return &ChoiceState{id: id}
}

// ID returns the state identifier
func (s *ChoiceState) ID() string {
	return s.id
}

// Enter is a no-op; choice states are never resident
func (s *ChoiceState) Enter(Context) error {
	return nil
}

// Exit is a no-op; choice states are never resident
func (s *ChoiceState) Exit(Context) error {
	return nil
}

// IsPseudo returns true for choice states
func (s *ChoiceState) IsPseudo() bool {
	return true
}

// IsFinal returns false for choice states
func (s *ChoiceState) IsFinal() bool {
	return false
}

// AddBranch appends a guarded branch
func (s *ChoiceState) AddBranch(branch ChoiceBranch) {
	s.branches = append(s.branches, branch)
}

// SetDefaultTarget sets the branch taken when no guard holds
func (s *ChoiceState) SetDefaultTarget(target string) {
	s.defaultTarget = target
}

// Branches returns a copy of the guarded branches in evaluation order
func (s *ChoiceState) Branches() []ChoiceBranch {
	out := make([]ChoiceBranch, len(s.branches))
	copy(out, s.branches)
	return out
}

// DefaultTarget returns the fallback target
func (s *ChoiceState) DefaultTarget() string {
	return s.defaultTarget
}

// Targets returns every state the choice can resolve to
func (s *ChoiceState) Targets() []string {
	targets := make([]string, 0, len(s.branches)+1)
	for _, b := range s.branches {
		targets = append(targets, b.Target)
	}
	if s.defaultTarget != "" {
		targets = append(targets, s.defaultTarget)
	}
	return targets
}

// resolve evaluates the branches in order against ctx
func (s *ChoiceState) resolve(ctx Context, onGuard func(target string, result bool)) (string, ActionFunc, error) {
	for _, b := range s.branches {
		passed := true
		if b.Guard != nil {
			result, err := safeEvaluateGuard(b.Guard, ctx)
			if err != nil {
				// a panicking guard never selects its branch
				continue
			}
			passed = result
		}
		if onGuard != nil {
			onGuard(b.Target, passed)
		}
		if passed {
			return b.Target, b.Action, nil
		}
	}
	if s.defaultTarget != "" {
		return s.defaultTarget, nil, nil
	}
	return "", nil, NewTransitionError(ErrCodeTransitionNotAllowed, s.id, "", "",
		"no branch of choice state '"+s.id+"' applies")
}
