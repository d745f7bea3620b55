package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/anggasct/crossing/pkg/fsm"
)

// DOTGenerator generates Graphviz DOT format representations of state machines
type DOTGenerator struct {
	machineDefinition fsm.MachineDefinition
	options           DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	Title               string
	ShowGuardConditions bool
	ShowPseudostates    bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	NodeShape           string
	PseudostateStyle    string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		Title:               "StateMachine",
		ShowGuardConditions: true,
		ShowPseudostates:    true,
		RankDirection:       "TB",
		NodeShape:           "box",
		PseudostateStyle:    "diamond",
	}
}

// NewDOTGenerator creates a new DOT generator for the given machine definition
func NewDOTGenerator(machineDefinition fsm.MachineDefinition, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		machineDefinition: machineDefinition,
		options:           opts,
	}
}

// Generate creates a DOT representation of the state machine. Output is
// sorted by state ID so equal definitions render identically.
func (g *DOTGenerator) Generate() (string, error) {
	if g.machineDefinition == nil {
		return "", fmt.Errorf("no machine definition")
	}

	var dot strings.Builder

	title := g.options.Title
	if title == "" {
		title = "StateMachine"
	}
	fmt.Fprintf(&dot, "digraph %s {\n", quoteID(title))
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generateStates(&dot)
	dot.WriteString("\n")
	g.generateTransitions(&dot)

	dot.WriteString("}\n")
	return dot.String(), nil
}

func (g *DOTGenerator) sortedStates() ([]string, map[string]fsm.State) {
	states := g.machineDefinition.GetStates()
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, states
}

func (g *DOTGenerator) generateStates(dot *strings.Builder) {
	ids, states := g.sortedStates()
	initialState := g.machineDefinition.GetInitialState()

	dot.WriteString("  // States\n")
	for _, id := range ids {
		state := states[id]
		if state.IsPseudo() && !g.options.ShowPseudostates {
			continue
		}
		g.generateStateNode(dot, id, state, id == initialState)
	}
}

func (g *DOTGenerator) generateStateNode(dot *strings.Builder, stateID string, state fsm.State, isInitial bool) {
	shape := g.options.NodeShape
	fillColor := "lightblue"
	label := stateID

	if isInitial {
		fillColor = "lightgreen"
		label += "\\n(initial)"
	}

	if state.IsFinal() {
		shape = "doublecircle"
		fillColor = "lightcoral"
	} else if state.IsPseudo() {
		shape = g.options.PseudostateStyle
		fillColor = "lightyellow"
		label = stateID + "\\n[Choice]"
	}

	fmt.Fprintf(dot, "  %s [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
		quoteID(stateID), shape, fillColor, label)
}

type edge struct {
	from, to, label string
}

func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	ids, states := g.sortedStates()
	transitions := g.machineDefinition.GetTransitions()

	var edges []edge
	for _, from := range ids {
		for _, t := range transitions[from] {
			label := t.EventName
			if guard := g.guardLabel(t.Guard != nil, t.Label); guard != "" {
				label += " " + guard
			}
			if choice, ok := states[t.TargetState].(*fsm.ChoiceState); ok && !g.options.ShowPseudostates {
				for _, b := range g.choiceEdges(choice) {
					edges = append(edges, edge{from: from, to: b.to, label: joinLabel(label, b.label)})
				}
				continue
			}
			edges = append(edges, edge{from: from, to: t.TargetState, label: label})
		}

		if choice, ok := states[from].(*fsm.ChoiceState); ok && g.options.ShowPseudostates {
			edges = append(edges, g.choiceEdges(choice)...)
		}
	}

	dot.WriteString("  // Transitions\n")
	for _, e := range edges {
		if e.label == "" {
			fmt.Fprintf(dot, "  %s -> %s;\n", quoteID(e.from), quoteID(e.to))
			continue
		}
		fmt.Fprintf(dot, "  %s -> %s [label=\"%s\"];\n", quoteID(e.from), quoteID(e.to), e.label)
	}
}

func (g *DOTGenerator) choiceEdges(choice *fsm.ChoiceState) []edge {
	var out []edge
	for _, b := range choice.Branches() {
		out = append(out, edge{from: choice.ID(), to: b.Target, label: g.guardLabel(b.Guard != nil, b.Label)})
	}
	if target := choice.DefaultTarget(); target != "" {
		out = append(out, edge{from: choice.ID(), to: target, label: "[else]"})
	}
	return out
}

func (g *DOTGenerator) guardLabel(guarded bool, label string) string {
	if !g.options.ShowGuardConditions || (!guarded && label == "") {
		return ""
	}
	if label == "" {
		label = "guard"
	}
	return "[" + label + "]"
}

func joinLabel(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func quoteID(id string) string {
	return "\"" + strings.ReplaceAll(id, "\"", "\\\"") + "\""
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(machineDefinition fsm.MachineDefinition, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(machineDefinition, options...),
	}
}

// Generate creates an SVG representation of the state machine
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the state machine
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
