package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	head Head
	on   bool
}

type recorder struct {
	writes []write
	state  Aspect
}

func (r *recorder) WriteSignal(h Head, on bool) {
	r.writes = append(r.writes, write{h, on})
	r.state[h] = on
}

func TestProject_OneGoHeadPerPhase(t *testing.T) {
	for _, p := range AllPhases() {
		a := Project(p)

		for _, g := range []Group{GroupAxisA, GroupAxisB, GroupPedestrian} {
			_, single := a.ColorOf(g)
			assert.True(t, single, "%s: group %s must show exactly one color", p, g)
		}

		goHeads := 0
		for _, h := range a.LitHeads() {
			if h.IsGo() {
				goHeads++
			}
		}
		if p == Pedestrian {
			assert.Zero(t, goHeads)
			assert.True(t, a.Lit(HeadPedGreen))
		} else {
			assert.Equal(t, 1, goHeads, p.String())
			assert.False(t, a.Lit(HeadPedGreen))
		}
	}
}

func TestProject_Table(t *testing.T) {
	assert.Equal(t, "[axis_a_green axis_b_red ped_red]", Project(AxisAGreen).String())
	assert.Equal(t, "[axis_a_red axis_b_yellow ped_red]", Project(AxisBYellow).String())
	assert.Equal(t, "[axis_a_red axis_b_red ped_green]", Project(Pedestrian).String())
	assert.Equal(t, AllRed(), func() Aspect {
		var a Aspect
		a[HeadAxisARed], a[HeadAxisBRed], a[HeadPedRed] = true, true, true
		return a
	}())
	assert.Panics(t, func() { Project(Phase(7)) })
}

func TestProjector_SafeThenApply(t *testing.T) {
	rec := &recorder{}
	p := NewProjector(rec)

	p.Safe()
	assert.Equal(t, AllRed(), rec.state)
	_, applied := p.Current()
	assert.False(t, applied)

	rec.writes = nil
	p.Apply(AxisAGreen)

	assert.Equal(t, Project(AxisAGreen), rec.state)
	assert.Equal(t, Project(AxisAGreen), p.Aspect())
	current, applied := p.Current()
	assert.True(t, applied)
	assert.Equal(t, AxisAGreen, current)

	// baseline first: go heads off, then both reds, then the new phase
	require.Len(t, rec.writes, 8)
	assert.Equal(t, []write{
		{HeadAxisAYellow, false}, {HeadAxisAGreen, false},
		{HeadAxisBYellow, false}, {HeadAxisBGreen, false},
		{HeadAxisARed, true}, {HeadAxisBRed, true},
		{HeadAxisARed, false}, {HeadAxisAGreen, true},
	}, rec.writes)
}

func TestProjector_EveryTransitionPassesThroughAllRed(t *testing.T) {
	cycle := []Phase{AxisAGreen, AxisAYellow, Pedestrian, AxisBGreen, AxisBYellow, AxisAGreen, AxisAYellow, AxisBGreen}

	rec := &recorder{}
	p := NewProjector(rec)
	p.Safe()

	for i := 1; i < len(cycle); i++ {
		p.Apply(cycle[i-1])
		rec.writes = nil
		var live Aspect = rec.state

		p.Apply(cycle[i])

		sawAllVehicleRed := false
		for _, w := range rec.writes {
			if w.on && w.head.IsGo() {
				assert.True(t, sawAllVehicleRed, "%s -> %s: %s lit before all-red", cycle[i-1], cycle[i], w.head)
			}
			live[w.head] = w.on
			if vehicleAllRed(live) {
				sawAllVehicleRed = true
			}
			assertNoConflict(t, live)
		}
		assert.True(t, sawAllVehicleRed)
		assert.Equal(t, Project(cycle[i]), rec.state)
	}
}

func TestProjector_PedestrianGreenDropsBeforeVehicleGo(t *testing.T) {
	rec := &recorder{}
	p := NewProjector(rec)
	p.Safe()
	p.Apply(Pedestrian)
	rec.writes = nil

	p.Apply(AxisBGreen)

	pedOff, goOn := -1, -1
	for i, w := range rec.writes {
		if w.head == HeadPedGreen && !w.on {
			pedOff = i
		}
		if w.head == HeadAxisBGreen && w.on {
			goOn = i
		}
	}
	require.NotEqual(t, -1, pedOff)
	require.NotEqual(t, -1, goOn)
	assert.Less(t, pedOff, goOn)
}

func TestWriterFunc(t *testing.T) {
	var got []Head
	w := WriterFunc(func(h Head, on bool) {
		if on {
			got = append(got, h)
		}
	})
	NewProjector(w).Safe()
	assert.ElementsMatch(t, []Head{HeadAxisARed, HeadAxisBRed, HeadPedRed}, got)
}

func vehicleAllRed(a Aspect) bool {
	for _, axis := range Axes {
		if c, ok := a.ColorOf(VehicleGroup(axis)); !ok || c != Red {
			return false
		}
	}
	return true
}

func assertNoConflict(t *testing.T, a Aspect) {
	t.Helper()
	aGo := a[HeadAxisAGreen] || a[HeadAxisAYellow]
	bGo := a[HeadAxisBGreen] || a[HeadAxisBYellow]
	assert.False(t, aGo && bGo, "both axes granted: %s", a)
	assert.False(t, a[HeadPedGreen] && (aGo || bGo), "walk with vehicle go: %s", a)
	assert.False(t, a[HeadPedGreen] && !(a[HeadAxisARed] && a[HeadAxisBRed]), "walk without vehicle reds: %s", a)
	for _, g := range []Group{GroupAxisA, GroupAxisB, GroupPedestrian} {
		lit := 0
		for _, h := range GroupHeads(g) {
			if a[h] {
				lit++
			}
		}
		assert.LessOrEqual(t, lit, 1, "group %s shows %d colors: %s", g, lit, a)
	}
}
