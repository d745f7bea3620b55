package observers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/anggasct/crossing/pkg/fsm"
)

// MetricsObserver collects metrics about state machine execution
type MetricsObserver struct {
	fsm.BaseObserver

	stateVisits      map[string]int
	stateTimeSpent   map[string]time.Duration
	eventCounts      map[string]int
	transitionCounts map[string]int
	rejectedCount    int
	errorCount       int
	lastStateEntry   map[string]time.Time
	now              func() time.Time
	mutex            sync.RWMutex
}

// NewMetricsObserver creates a new metrics observer timed by the wall clock
func NewMetricsObserver() *MetricsObserver {
	o := &MetricsObserver{now: time.Now}
	o.clear()
	return o
}

// SetNow replaces the time source, typically with a manual clock's Now
func (o *MetricsObserver) SetNow(now func() time.Time) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.now = now
}

func (o *MetricsObserver) clear() {
	o.stateVisits = make(map[string]int)
	o.stateTimeSpent = make(map[string]time.Duration)
	o.eventCounts = make(map[string]int)
	o.transitionCounts = make(map[string]int)
	o.lastStateEntry = make(map[string]time.Time)
	o.rejectedCount = 0
	o.errorCount = 0
}

// OnStateEnter records state entry metrics
func (o *MetricsObserver) OnStateEnter(state string, _ fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.stateVisits[state]++
	o.lastStateEntry[state] = o.now()
}

// OnStateExit records state exit metrics
func (o *MetricsObserver) OnStateExit(state string, _ fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if entryTime, ok := o.lastStateEntry[state]; ok {
		o.stateTimeSpent[state] += o.now().Sub(entryTime)
		delete(o.lastStateEntry, state)
	}
}

// OnTransition records transition and event metrics
func (o *MetricsObserver) OnTransition(from, to string, event fsm.Event, _ fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.transitionCounts[from+"->"+to]++
	if name := eventName(event); name != "" {
		o.eventCounts[name]++
	}
}

// OnEventRejected counts rejected events
func (o *MetricsObserver) OnEventRejected(fsm.Event, string, fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rejectedCount++
}

// OnError records error metrics
func (o *MetricsObserver) OnError(error, fsm.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// GetStateVisitCounts returns the number of times each state was visited
func (o *MetricsObserver) GetStateVisitCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.stateVisits)
}

// GetStateTimeSpent returns the time spent in each state
func (o *MetricsObserver) GetStateTimeSpent() map[string]time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.stateTimeSpent)
}

// GetEventCounts returns the number of times each event caused a transition
func (o *MetricsObserver) GetEventCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.eventCounts)
}

// GetTransitionCounts returns the number of times each transition occurred
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.transitionCounts)
}

// GetRejectedCount returns the number of rejected events
func (o *MetricsObserver) GetRejectedCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.rejectedCount
}

// GetErrorCount returns the number of errors
func (o *MetricsObserver) GetErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// TotalVisits returns the number of state entries across all states
func (o *MetricsObserver) TotalVisits() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Sum(lo.Values(o.stateVisits))
}

// Summary renders visits and time per state, one state per line in name order
func (o *MetricsObserver) Summary() string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	states := lo.Union(lo.Keys(o.stateVisits), lo.Keys(o.stateTimeSpent))
	sort.Strings(states)

	lines := lo.Map(states, func(state string, _ int) string {
		return fmt.Sprintf("%s visits=%d time=%s", state, o.stateVisits[state], o.stateTimeSpent[state])
	})
	return strings.Join(lines, "\n")
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.clear()
}
