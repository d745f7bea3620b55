// Package timing computes phase dwell lengths and runs dwells on a clock
// without accumulating drift.
package timing

import (
	"fmt"
	"sort"
	"strings"
)

// Step grants Extra ticks of green once a counter reaches Min.
type Step struct {
	Min   int `yaml:"min"`
	Extra int `yaml:"extra"`
}

// Table is a monotonic step function from traffic count to extra green.
type Table struct {
	Name  string
	steps []Step
}

// FiveTier is the canonical table: 5, 10 and 15 vehicles add 10, 20 and 30 ticks.
func FiveTier() Table {
	return Table{Name: "five_tier", steps: []Step{{15, 30}, {10, 20}, {5, 10}}}
}

// ThreeTier is the lighter table: 4 and 8 vehicles add 10 and 20 ticks.
func ThreeTier() Table {
	return Table{Name: "three_tier", steps: []Step{{8, 20}, {4, 10}}}
}

// TableByName returns a preset table.
func TableByName(name string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "five_tier":
		return FiveTier(), nil
	case "three_tier":
		return ThreeTier(), nil
	default:
		return Table{}, fmt.Errorf("unknown threshold table %q", name)
	}
}

// NewTable builds a custom table from steps in any order.
func NewTable(name string, steps []Step) (Table, error) {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	t := Table{Name: name, steps: sorted}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Steps returns the steps in descending threshold order.
func (t Table) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Extra returns the extra green ticks earned by count.
func (t Table) Extra(count int) int {
	for _, s := range t.steps {
		if count >= s.Min {
			return s.Extra
		}
	}
	return 0
}

// Validate checks the table is non-decreasing in count.
func (t Table) Validate() error {
	for i, s := range t.steps {
		if s.Min <= 0 {
			return fmt.Errorf("threshold step %d: min must be positive, got %d", i, s.Min)
		}
		if s.Extra < 0 {
			return fmt.Errorf("threshold step %d: extra must not be negative, got %d", i, s.Extra)
		}
		if i == 0 {
			continue
		}
		prev := t.steps[i-1]
		if s.Min == prev.Min {
			return fmt.Errorf("threshold %d listed twice", s.Min)
		}
		if s.Extra > prev.Extra {
			return fmt.Errorf("threshold %d grants %d but higher threshold %d grants only %d", s.Min, s.Extra, prev.Min, prev.Extra)
		}
	}
	return nil
}
