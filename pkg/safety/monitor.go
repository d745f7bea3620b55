// Package safety watches every signal write for conflicting aspects.
package safety

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/anggasct/crossing/pkg/signal"
)

// Rule names a conflict the monitor detects.
type Rule string

const (
	// RuleConflictingAxes: both vehicle axes hold green or yellow.
	RuleConflictingAxes Rule = "conflicting_axes"
	// RuleMultipleColors: one group shows more than one lamp.
	RuleMultipleColors Rule = "multiple_colors"
	// RuleWalkWithVehicleGo: walk is lit while a vehicle lamp grants right-of-way.
	RuleWalkWithVehicleGo Rule = "walk_with_vehicle_go"
	// RuleWalkWithoutAllRed: walk is lit while a vehicle red is dark.
	RuleWalkWithoutAllRed Rule = "walk_without_all_red"
	// RuleGoWithoutAllRed: a vehicle lamp came on without an all-red since the last one.
	RuleGoWithoutAllRed Rule = "go_without_all_red"
)

// Violation is one conflicting write.
type Violation struct {
	Seq    int
	Head   signal.Head
	On     bool
	Rule   Rule
	Aspect signal.Aspect
}

func (v Violation) String() string {
	return fmt.Sprintf("#%d %s=%t: %s %s", v.Seq, v.Head, v.On, v.Rule, v.Aspect)
}

// Monitor decorates a signal.Writer. Every write is forwarded unchanged and
// then checked; violations are recorded and logged, never blocked.
type Monitor struct {
	mu         sync.Mutex
	next       signal.Writer
	logger     *slog.Logger
	state      signal.Aspect
	armed      bool
	writes     int
	violations []Violation
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger logs violations at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor wraps next. A nil next only records.
func NewMonitor(next signal.Writer, opts ...Option) *Monitor {
	m := &Monitor{next: next, armed: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WriteSignal forwards the write and checks the resulting aspect.
func (m *Monitor) WriteSignal(h signal.Head, on bool) {
	if m.next != nil {
		m.next.WriteSignal(h, on)
	}

	m.mu.Lock()
	m.writes++
	m.state[h] = on

	var broken []Rule
	if on && h.IsGo() {
		if !m.armed {
			broken = append(broken, RuleGoWithoutAllRed)
		}
		m.armed = false
	}
	broken = append(broken, check(m.state)...)
	if vehicleAllRed(m.state) {
		m.armed = true
	}

	found := lo.Map(broken, func(r Rule, _ int) Violation {
		return Violation{Seq: m.writes, Head: h, On: on, Rule: r, Aspect: m.state}
	})
	m.violations = append(m.violations, found...)
	logger := m.logger
	m.mu.Unlock()

	if logger != nil {
		for _, v := range found {
			logger.Error("signal conflict", "rule", string(v.Rule), "head", v.Head.String(), "on", v.On, "aspect", v.Aspect.String())
		}
	}
}

// Violations returns every violation recorded so far.
func (m *Monitor) Violations() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// Healthy reports whether no violation has been seen.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations) == 0
}

// Writes returns the number of writes observed.
func (m *Monitor) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Aspect returns the aspect as the monitor has seen it.
func (m *Monitor) Aspect() signal.Aspect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Check returns every rule a steady aspect breaks.
func Check(a signal.Aspect) []Rule {
	return check(a)
}

func check(a signal.Aspect) []Rule {
	var broken []Rule

	granted := lo.Filter(signal.Axes[:], func(axis signal.Axis, _ int) bool {
		return axisGo(a, axis)
	})
	if len(granted) > 1 {
		broken = append(broken, RuleConflictingAxes)
	}

	groups := []signal.Group{signal.GroupAxisA, signal.GroupAxisB, signal.GroupPedestrian}
	if lo.SomeBy(groups, func(g signal.Group) bool { return len(litIn(a, g)) > 1 }) {
		broken = append(broken, RuleMultipleColors)
	}

	if a.Lit(signal.HeadPedGreen) {
		if len(granted) > 0 {
			broken = append(broken, RuleWalkWithVehicleGo)
		}
		if !a.Lit(signal.HeadAxisARed) || !a.Lit(signal.HeadAxisBRed) {
			broken = append(broken, RuleWalkWithoutAllRed)
		}
	}
	return broken
}

func litIn(a signal.Aspect, g signal.Group) []signal.Head {
	return lo.Filter(signal.GroupHeads(g), func(h signal.Head, _ int) bool { return a.Lit(h) })
}

func axisGo(a signal.Aspect, axis signal.Axis) bool {
	return lo.SomeBy(litIn(a, signal.VehicleGroup(axis)), func(h signal.Head) bool { return h.IsGo() })
}

func vehicleAllRed(a signal.Aspect) bool {
	return lo.EveryBy(signal.Axes[:], func(axis signal.Axis) bool {
		lit := litIn(a, signal.VehicleGroup(axis))
		return len(lit) == 1 && lit[0].Color() == signal.Red
	})
}
