// Package config loads the intersection configuration from YAML.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/anggasct/crossing/pkg/controller"
	"github.com/anggasct/crossing/pkg/demand"
	"github.com/anggasct/crossing/pkg/input"
	"github.com/anggasct/crossing/pkg/signal"
	"github.com/anggasct/crossing/pkg/status"
	"github.com/anggasct/crossing/pkg/timing"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultYAML returns the commented default configuration file.
func DefaultYAML() []byte {
	return bytes.Clone(defaultYAML)
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the whole configuration file.
type Config struct {
	Timing     Timing     `yaml:"timing"`
	Counting   Counting   `yaml:"counting"`
	Thresholds Thresholds `yaml:"thresholds"`
	Labels     Labels     `yaml:"labels"`
	Display    Display    `yaml:"display"`
	GPIO       GPIO       `yaml:"gpio"`
	Log        Log        `yaml:"log"`
}

// Timing holds phase lengths in ticks and the dwell cadence.
type Timing struct {
	BaseGreen  int      `yaml:"base_green"`
	Yellow     int      `yaml:"yellow"`
	Pedestrian int      `yaml:"pedestrian"`
	Tick       Duration `yaml:"tick"`
	SubTicks   int      `yaml:"sub_ticks"`
	StopHold   Duration `yaml:"stop_hold"`
	ReadyHold  Duration `yaml:"ready_hold"`
}

// Counting selects the counting policy.
type Counting struct {
	Mode string `yaml:"mode"`
	Max  int    `yaml:"max"`
}

// Thresholds names a preset table or lists custom steps. Steps win when set.
type Thresholds struct {
	Table string        `yaml:"table"`
	Steps []timing.Step `yaml:"steps,omitempty"`
}

// Labels are the on-screen axis names.
type Labels struct {
	AxisA string `yaml:"axis_a"`
	AxisB string `yaml:"axis_b"`
}

// Display sizes the status display.
type Display struct {
	Width int `yaml:"width"`
}

// GPIO maps signal heads and buttons to host pin names.
type GPIO struct {
	Signals map[string]string `yaml:"signals"`
	Buttons map[string]string `yaml:"buttons"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := decode(defaultYAML, Config{})
	if err != nil {
		panic(fmt.Sprintf("config: embedded default: %v", err))
	}
	return cfg
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg, err := decode(data, Default())
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, base Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return base, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := lo.Map(e.Problems, func(err error, _ int) string { return err.Error() })
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if _, err := c.Settings(); err != nil {
		problems = append(problems, err)
	}
	if c.Display.Width < 1 {
		add("display.width must be positive, got %d", c.Display.Width)
	}
	if strings.TrimSpace(c.Labels.AxisA) == "" || strings.TrimSpace(c.Labels.AxisB) == "" {
		add("labels must not be empty")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		problems = append(problems, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		add("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.SignalPins(); err != nil {
		problems = append(problems, err)
	}
	if _, err := c.ButtonPins(); err != nil {
		problems = append(problems, err)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Table returns the configured threshold table.
func (c Config) Table() (timing.Table, error) {
	if len(c.Thresholds.Steps) > 0 {
		return timing.NewTable("custom", c.Thresholds.Steps)
	}
	return timing.TableByName(c.Thresholds.Table)
}

// Settings converts the file into controller settings.
func (c Config) Settings() (controller.Settings, error) {
	table, err := c.Table()
	if err != nil {
		return controller.Settings{}, fmt.Errorf("thresholds: %w", err)
	}
	mode, err := demand.ParseCountingMode(c.Counting.Mode)
	if err != nil {
		return controller.Settings{}, fmt.Errorf("counting: %w", err)
	}

	s := controller.Settings{
		Timing: timing.Policy{
			BaseGreen:  c.Timing.BaseGreen,
			Yellow:     c.Timing.Yellow,
			Pedestrian: c.Timing.Pedestrian,
			Table:      table,
		},
		Counting:  demand.Policy{Mode: mode, Max: c.Counting.Max},
		Labels:    status.Labels{AxisA: c.Labels.AxisA, AxisB: c.Labels.AxisB},
		Tick:      c.Timing.Tick.Std(),
		SubTicks:  c.Timing.SubTicks,
		StopHold:  c.Timing.StopHold.Std(),
		ReadyHold: c.Timing.ReadyHold.Std(),
	}
	if s.SubTicks < 1 {
		return controller.Settings{}, fmt.Errorf("timing.sub_ticks must be positive, got %d", s.SubTicks)
	}
	if s.Tick <= 0 {
		return controller.Settings{}, fmt.Errorf("timing.tick must be positive, got %s", s.Tick)
	}
	if err := s.Validate(); err != nil {
		return controller.Settings{}, err
	}
	return s, nil
}

// LogLevel returns the configured slog level.
func (c Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger builds a logger writing to w in the configured format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// SignalPins maps every head to its pin name. Unmapped heads are an error
// only when some head is mapped.
func (c Config) SignalPins() (map[signal.Head]string, error) {
	pins := make(map[signal.Head]string, len(c.GPIO.Signals))
	for name, pin := range c.GPIO.Signals {
		h, err := signal.ParseHead(name)
		if err != nil {
			return nil, fmt.Errorf("gpio.signals: %w", err)
		}
		pins[h] = pin
	}
	if len(pins) > 0 {
		missing := lo.Filter(signal.AllHeads(), func(h signal.Head, _ int) bool { return pins[h] == "" })
		if len(missing) > 0 {
			return nil, fmt.Errorf("gpio.signals: no pin for %s", strings.Join(lo.Map(missing, func(h signal.Head, _ int) string { return h.String() }), ", "))
		}
	}
	if dup := duplicates(pins); dup != "" {
		return nil, fmt.Errorf("gpio.signals: pin %s used twice", dup)
	}
	return pins, nil
}

// ButtonPins maps every button to its pin name, with the same rules as SignalPins.
func (c Config) ButtonPins() (map[input.Button]string, error) {
	pins := make(map[input.Button]string, len(c.GPIO.Buttons))
	for name, pin := range c.GPIO.Buttons {
		b, err := input.ParseButton(name)
		if err != nil {
			return nil, fmt.Errorf("gpio.buttons: %w", err)
		}
		pins[b] = pin
	}
	if len(pins) > 0 {
		missing := lo.Filter(input.Buttons[:], func(b input.Button, _ int) bool { return pins[b] == "" })
		if len(missing) > 0 {
			return nil, fmt.Errorf("gpio.buttons: no pin for %s", strings.Join(lo.Map(missing, func(b input.Button, _ int) string { return b.String() }), ", "))
		}
	}
	if dup := duplicates(pins); dup != "" {
		return nil, fmt.Errorf("gpio.buttons: pin %s used twice", dup)
	}
	return pins, nil
}

func duplicates[K comparable](pins map[K]string) string {
	dups := lo.FindDuplicates(lo.Values(pins))
	if len(dups) == 0 {
		return ""
	}
	return dups[0]
}
