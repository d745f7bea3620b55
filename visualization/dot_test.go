package visualization_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/crossing/pkg/controller"
	"github.com/anggasct/crossing/pkg/fsm"
	"github.com/anggasct/crossing/visualization"
)

func simpleMachine(t *testing.T) fsm.MachineDefinition {
	t.Helper()
	def, err := fsm.NewMachine().
		State("idle").Initial().
		To("running").On("start").
		State("running").
		To("stopped").On("stop").
		State("stopped").
		To("idle").On("reset").
		Build()
	require.NoError(t, err)
	return def
}

func phaseMachine(t *testing.T) fsm.MachineDefinition {
	t.Helper()
	def, err := controller.PhaseMachine(controller.PhaseHooks{})
	require.NoError(t, err)
	return def
}

func TestDOTGeneration(t *testing.T) {
	dotContent, err := visualization.NewDOTGenerator(simpleMachine(t)).Generate()
	require.NoError(t, err)

	assert.Contains(t, dotContent, "digraph \"StateMachine\"")
	assert.Contains(t, dotContent, "\"idle\" [shape=box style=\"filled\" fillcolor=lightgreen label=\"idle\\n(initial)\"];")
	assert.Contains(t, dotContent, "\"running\" [shape=box style=\"filled\" fillcolor=lightblue")
	assert.Contains(t, dotContent, "\"idle\" -> \"running\" [label=\"start\"];")
	assert.True(t, strings.HasSuffix(dotContent, "}\n"))
}

func TestDOTGeneration_IsDeterministic(t *testing.T) {
	def := phaseMachine(t)
	first, err := visualization.NewDOTGenerator(def).Generate()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := visualization.NewDOTGenerator(def).Generate()
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestDOTGeneration_PhaseMachine(t *testing.T) {
	options := visualization.DefaultDOTOptions()
	options.Title = "Intersection"
	options.RankDirection = "LR"

	dotContent, err := visualization.NewDOTGenerator(phaseMachine(t), options).Generate()
	require.NoError(t, err)

	assert.Contains(t, dotContent, "digraph \"Intersection\"")
	assert.Contains(t, dotContent, "rankdir=LR;")
	assert.Contains(t, dotContent, "\"after_axis_a_yellow\" [shape=diamond")
	assert.Contains(t, dotContent, "[Choice]")
	assert.Contains(t, dotContent, "\"axis_a_yellow\" -> \"after_axis_a_yellow\" [label=\"dwell_complete\"];")
	assert.Contains(t, dotContent, "\"after_axis_a_yellow\" -> \"pedestrian\" [label=\"[pedestrian requested]\"];")
	assert.Contains(t, dotContent, "\"after_axis_a_yellow\" -> \"axis_b_green\" [label=\"[else]\"];")
	assert.Contains(t, dotContent, "\"pedestrian\" -> \"axis_b_green\" [label=\"dwell_complete [after axis_a_yellow]\"];")
	assert.Contains(t, dotContent, "\"pedestrian\" -> \"axis_a_green\" [label=\"dwell_complete\"];")

	// states come out in name order
	assert.Less(t,
		strings.Index(dotContent, "\"after_axis_a_yellow\" [shape"),
		strings.Index(dotContent, "\"axis_a_green\" [shape"))
}

func TestDOTGeneration_CollapsedPseudostates(t *testing.T) {
	options := visualization.DefaultDOTOptions()
	options.ShowPseudostates = false

	dotContent, err := visualization.NewDOTGenerator(phaseMachine(t), options).Generate()
	require.NoError(t, err)

	assert.NotContains(t, dotContent, "after_axis_a_yellow")
	assert.Contains(t, dotContent, "\"axis_a_yellow\" -> \"pedestrian\" [label=\"dwell_complete [pedestrian requested]\"];")
	assert.Contains(t, dotContent, "\"axis_b_yellow\" -> \"axis_a_green\" [label=\"dwell_complete [else]\"];")
}

func TestDOTGeneration_WithoutGuards(t *testing.T) {
	options := visualization.DefaultDOTOptions()
	options.ShowGuardConditions = false

	dotContent, err := visualization.NewDOTGenerator(phaseMachine(t), options).Generate()
	require.NoError(t, err)

	assert.NotContains(t, dotContent, "pedestrian requested")
	assert.Contains(t, dotContent, "\"after_axis_b_yellow\" -> \"pedestrian\";")
	assert.Contains(t, dotContent, "[label=\"[else]\"]")
}

func TestDOTGeneration_NilDefinition(t *testing.T) {
	_, err := visualization.NewDOTGenerator(nil).Generate()
	assert.Error(t, err)
}

func TestGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.dot")
	require.NoError(t, visualization.NewDOTGenerator(phaseMachine(t)).GenerateToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"pedestrian\"")
}

func TestSVGGeneration(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("Graphviz not installed")
	}

	svg, err := visualization.NewSVGGenerator(simpleMachine(t)).Generate()
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")
}
