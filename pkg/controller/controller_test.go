package controller

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/crossing/pkg/demand"
	"github.com/anggasct/crossing/pkg/fsm"
	"github.com/anggasct/crossing/pkg/hal/memory"
	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/safety"
	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/status"
	"github.com/anggasct/crossing/pkg/timing"
)

type rig struct {
	clock   *memory.Clock
	board   *memory.Board
	buttons *memory.Buttons
	display *memory.Display
	monitor *safety.Monitor
	ctrl    *Controller
}

func newRig(t *testing.T, mutate func(*Settings), opts ...Option) *rig {
	t.Helper()
	r := &rig{
		clock:   memory.NewClock(time.Unix(0, 0)),
		board:   memory.NewBoard(),
		display: memory.NewDisplay(),
	}
	r.buttons = memory.NewButtons(r.clock)
	r.monitor = safety.NewMonitor(r.board)

	settings := DefaultSettings()
	settings.ReadyHold = 0
	if mutate != nil {
		mutate(&settings)
	}

	ctrl, err := New(settings, Hardware{
		Signals: r.monitor,
		Buttons: r.buttons,
		Display: r.display,
		Clock:   r.clock,
	}, opts...)
	require.NoError(t, err)
	r.ctrl = ctrl
	return r
}

func (r *rig) press(b input.Button, at time.Duration) {
	r.buttons.PressAt(b, at, 100*time.Millisecond)
}

func (r *rig) step(t *testing.T, want signal.Phase) {
	t.Helper()
	got, err := r.ctrl.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got, "at %s", r.clock.Elapsed())
}

func (r *rig) start(t *testing.T) {
	t.Helper()
	require.NoError(t, r.ctrl.Start())
}

func TestController_StartSequence(t *testing.T) {
	r := newRig(t, func(s *Settings) { s.ReadyHold = time.Second })
	r.start(t)

	msgs := r.display.Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, status.Message{Line1: "Traffic System", Line2: "Starting..."}, msgs[0])
	assert.Equal(t, status.Message{Line1: "Traffic System", Line2: "Ready"}, msgs[1])
	assert.Equal(t, time.Second, r.clock.Elapsed())

	snap := r.ctrl.Snapshot()
	assert.True(t, snap.Started)
	assert.Equal(t, signal.AxisAGreen, snap.Phase)
	assert.Equal(t, 10, snap.Dwell)
	assert.Equal(t, [2]int{0, 0}, snap.Counts)
	assert.False(t, snap.PedestrianPending)
	assert.Equal(t, signal.Project(signal.AxisAGreen), r.board.Aspect())
	assert.Equal(t, r.board.Aspect(), snap.Aspect)

	// the very first writes leave every group red
	writes := r.board.Writes()
	require.NotEmpty(t, writes)
	var safe signal.Aspect
	for _, w := range writes[:8] {
		safe[w.Head] = w.On
	}
	assert.Equal(t, signal.AllRed(), safe)

	err := r.ctrl.Start()
	assert.True(t, fsm.IsMachineError(err))
}

func TestController_StepBeforeStart(t *testing.T) {
	r := newRig(t, nil)
	_, err := r.ctrl.Step(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestController_StepWithDoneContext(t *testing.T) {
	r := newRig(t, nil)
	r.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	phase, err := r.ctrl.Step(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, signal.AxisAGreen, phase)
	assert.Zero(t, r.clock.Elapsed())
}

func TestController_BaseCycleWithoutDemand(t *testing.T) {
	r := newRig(t, nil)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	assert.Equal(t, 10*time.Second, r.clock.Elapsed())

	r.step(t, signal.AxisBGreen)
	assert.Equal(t, 13*time.Second, r.clock.Elapsed())
	assert.Equal(t, 10, r.ctrl.Snapshot().Dwell)

	msgs := r.display.Messages()[2:]
	require.Len(t, msgs, 13)
	assert.Equal(t, status.Message{Line1: "NS Green 10+0s", Line2: "T=10 EW=0"}, msgs[0])
	assert.Equal(t, status.Message{Line1: "NS Green 10+0s", Line2: "T=1 EW=0"}, msgs[9])
	assert.Equal(t, status.Message{Line1: "NS Yellow T=3s", Line2: "EW=0"}, msgs[10])
	assert.Equal(t, status.Message{Line1: "NS Yellow T=1s", Line2: "EW=0"}, msgs[12])

	r.step(t, signal.AxisBYellow)
	r.step(t, signal.AxisAGreen)
	assert.Equal(t, 26*time.Second, r.clock.Elapsed())
	assert.Equal(t, uint64(1), r.ctrl.Snapshot().Cycles)
	assert.True(t, r.monitor.Healthy(), "%v", r.monitor.Violations())
}

func TestController_CounterExtendsGreenAndResets(t *testing.T) {
	r := newRig(t, nil)
	// six Axis-A arrivals while Axis-B is green (13s..23s)
	for i := 0; i < 6; i++ {
		r.press(input.ButtonAxisA, time.Duration(14+i)*time.Second)
	}
	r.start(t)

	r.step(t, signal.AxisAYellow)
	r.step(t, signal.AxisBGreen)
	r.step(t, signal.AxisBYellow)
	assert.Equal(t, [2]int{6, 0}, r.ctrl.Snapshot().Counts)
	assert.True(t, r.display.Contains(status.Message{Line1: "NS RED: Count", Line2: "NS=6"}))

	r.step(t, signal.AxisAGreen)
	snap := r.ctrl.Snapshot()
	assert.Equal(t, 20, snap.Dwell)
	assert.Equal(t, 6, snap.Counts[0])

	r.step(t, signal.AxisAYellow)
	assert.Equal(t, 46*time.Second, r.clock.Elapsed())
	assert.Equal(t, 0, r.ctrl.Snapshot().Counts[0])
	assert.True(t, r.display.Contains(status.Message{Line1: "NS Green 10+10s", Line2: "T=20 EW=0"}))
}

func TestController_GatedCountIgnoresServedAxis(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonAxisA, 2*time.Second)
	r.press(input.ButtonAxisB, 3*time.Second)
	r.press(input.ButtonAxisA, 11*time.Second)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	assert.Equal(t, [2]int{0, 1}, r.ctrl.Snapshot().Counts)
	assert.True(t, r.display.Contains(status.Message{Line1: "NS not RED", Line2: "No count"}))

	// yellow still serves Axis-A
	r.step(t, signal.AxisBGreen)
	assert.Equal(t, [2]int{0, 1}, r.ctrl.Snapshot().Counts)

	// Axis-B's count resets when its green ends, not when it starts
	r.step(t, signal.AxisBYellow)
	assert.Equal(t, [2]int{0, 0}, r.ctrl.Snapshot().Counts)
}

func TestController_HeldButtonCountsOnce(t *testing.T) {
	r := newRig(t, nil)
	r.buttons.PressAt(input.ButtonAxisB, 1*time.Second, 5*time.Second)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	assert.Equal(t, 1, r.ctrl.Snapshot().Counts[1])
}

func TestController_PedestrianAfterAxisAYellow(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonPedestrian, 5*time.Second)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	assert.True(t, r.ctrl.Snapshot().PedestrianPending)
	assert.True(t, r.display.Contains(status.Message{Line1: "Pedestrian Req", Line2: "Received"}))

	r.step(t, signal.Pedestrian)
	assert.Equal(t, signal.Project(signal.Pedestrian), r.board.Aspect())
	assert.Equal(t, 8, r.ctrl.Snapshot().Dwell)

	r.step(t, signal.AxisBGreen)
	assert.Equal(t, 13*time.Second+8*time.Second+500*time.Millisecond, r.clock.Elapsed())
	assert.False(t, r.ctrl.Snapshot().PedestrianPending)
	assert.True(t, r.display.Contains(status.Message{Line1: "PEDESTRIAN", Line2: "T=8 WALK"}))
	assert.True(t, r.display.Contains(status.Message{Line1: "PEDESTRIAN", Line2: "STOP"}))

	// no second walk
	r.step(t, signal.AxisBYellow)
	r.step(t, signal.AxisAGreen)
	assert.True(t, r.monitor.Healthy(), "%v", r.monitor.Violations())
}

func TestController_RepeatedRequestsServeOneWalk(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonPedestrian, 2*time.Second)
	r.press(input.ButtonPedestrian, 4*time.Second)
	r.press(input.ButtonPedestrian, 7*time.Second)

	walks := 0
	r.start(t)
	for i := 0; i < 6; i++ {
		next, err := r.ctrl.Step(context.Background())
		require.NoError(t, err)
		if next == signal.Pedestrian {
			walks++
		}
	}
	assert.Equal(t, 1, walks)
}

func TestController_PedestrianAfterAxisBYellow(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonPedestrian, 15*time.Second)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	r.step(t, signal.AxisBGreen)
	r.step(t, signal.AxisBYellow)
	r.step(t, signal.Pedestrian)
	r.step(t, signal.AxisAGreen)
	assert.Equal(t, uint64(1), r.ctrl.Snapshot().Cycles)
}

func TestController_PressDuringWalkIsAbsorbed(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonPedestrian, 5*time.Second)
	r.press(input.ButtonPedestrian, 16*time.Second)
	r.start(t)

	r.step(t, signal.AxisAYellow)
	r.step(t, signal.Pedestrian)
	r.step(t, signal.AxisBGreen)
	r.step(t, signal.AxisBYellow)
	r.step(t, signal.AxisAGreen)
}

func TestController_UnconditionalCountingWithCap(t *testing.T) {
	r := newRig(t, func(s *Settings) {
		s.Counting = demand.CappedAt(10)
		s.Timing.Table = timing.ThreeTier()
	})
	for i := 0; i < 12; i++ {
		r.press(input.ButtonAxisA, time.Duration(i)*500*time.Millisecond+100*time.Millisecond)
	}
	r.start(t)

	r.step(t, signal.AxisAYellow)
	assert.Equal(t, 0, r.ctrl.Snapshot().Counts[0], "reset when Axis-A green ended")
	assert.True(t, r.display.Contains(status.Message{Line1: "NS traffic cnt", Line2: "NS = 10"}))
	assert.True(t, r.display.Contains(status.Message{Line1: "NS traffic max", Line2: "NS = 10"}))
	assert.Equal(t, 30, r.ctrl.GreenSeconds(10))
}

func TestController_RunCycle(t *testing.T) {
	r := newRig(t, nil)
	r.start(t)

	require.NoError(t, r.ctrl.RunCycle(context.Background()))
	assert.Equal(t, signal.AxisAGreen, r.ctrl.Phase())
	assert.Equal(t, 26*time.Second, r.clock.Elapsed())
}

type cancelAfter struct {
	fsm.BaseObserver
	mu     sync.Mutex
	greens int
	limit  int
	cancel context.CancelFunc
}

func (c *cancelAfter) OnStateEnter(state string, _ fsm.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state == signal.AxisAGreen.String() {
		c.greens++
		if c.greens > c.limit {
			c.cancel()
		}
	}
}

func TestController_RunStopsBetweenPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopper := &cancelAfter{limit: 2, cancel: cancel}

	r := newRig(t, nil, WithObserver(stopper))
	err := r.ctrl.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	snap := r.ctrl.Snapshot()
	assert.Equal(t, uint64(2), snap.Cycles)
	assert.Equal(t, signal.AxisAGreen, snap.Phase)
	assert.Equal(t, 52*time.Second, r.clock.Elapsed())

	require.NoError(t, r.ctrl.Shutdown())
	assert.False(t, r.ctrl.Snapshot().Started)
	assert.Equal(t, signal.AllRed(), r.board.Aspect())
}

func TestController_SnapshotFromAnotherGoroutine(t *testing.T) {
	r := newRig(t, nil)
	r.press(input.ButtonPedestrian, 3*time.Second)
	r.start(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				snap := r.ctrl.Snapshot()
				assert.True(t, snap.Phase.Valid())
			}
		}
	}()

	require.NoError(t, r.ctrl.RunCycle(context.Background()))
	close(done)
	wg.Wait()
}

func TestController_LogsPresses(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := newRig(t, nil, WithLogger(logger))
	r.press(input.ButtonAxisB, time.Second)
	r.start(t)
	r.step(t, signal.AxisAYellow)

	out := buf.String()
	assert.Contains(t, out, "controller started")
	assert.Contains(t, out, "controller="+r.ctrl.ID())
	assert.Contains(t, out, "outcome=counted")
}

func TestNew_RejectsIncompleteHardware(t *testing.T) {
	_, err := New(DefaultSettings(), Hardware{Buttons: memory.NewButtons(memory.NewClock(time.Unix(0, 0)))})
	assert.Error(t, err)

	_, err = New(DefaultSettings(), Hardware{Signals: memory.NewBoard()})
	assert.Error(t, err)

	settings := DefaultSettings()
	settings.Timing.Pedestrian = 0
	_, err = New(settings, Hardware{Signals: memory.NewBoard(), Buttons: memory.NewButtons(memory.NewClock(time.Unix(0, 0)))})
	assert.ErrorContains(t, err, "pedestrian")
}

func TestGreenSeconds(t *testing.T) {
	assert.Equal(t, 10, GreenSeconds(4))
	assert.Equal(t, 20, GreenSeconds(5))
	assert.Equal(t, 30, GreenSeconds(14))
	assert.Equal(t, 40, GreenSeconds(15))
}
