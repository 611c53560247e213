package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scratchbench/internal/timing"
)

// Definition is a declarative scenario as written in YAML. Scenario-specific
// content is limited to which fields to sample and which predicate to apply;
// Compile turns it into a runnable Scenario.
type Definition struct {
	// Name uniquely identifies the scenario (lower_snake_case).
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Sprite is the declared name of the observed actor.
	Sprite string `yaml:"sprite,omitempty" json:"sprite,omitempty"`

	// Aliases are fallback names for Sprite.
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// SingleSprite falls back to the only sprite present.
	SingleSprite bool `yaml:"single_sprite,omitempty" json:"single_sprite,omitempty"`

	// Timeout is the default case budget in seconds.
	Timeout float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	Cases []CaseDefinition `yaml:"cases" json:"cases"`
}

// CaseDefinition is one case: steps run in order, then every expectation is
// evaluated and all must pass.
type CaseDefinition struct {
	Name string `yaml:"name" json:"name"`

	// Timeout overrides the scenario budget, in seconds.
	Timeout float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Restart starts the simulation before the first step.
	Restart bool `yaml:"restart,omitempty" json:"restart,omitempty"`

	Steps  []Step        `yaml:"steps" json:"steps"`
	Expect []Expectation `yaml:"expect" json:"expect"`
}

// Step is one action of a case. Exactly one field is set.
type Step struct {
	Start     *struct{}     `yaml:"start,omitempty" json:"start,omitempty"`
	Stop      *struct{}     `yaml:"stop,omitempty" json:"stop,omitempty"`
	Wait      *int          `yaml:"wait,omitempty" json:"wait,omitempty"`
	KeyDown   string        `yaml:"key_down,omitempty" json:"key_down,omitempty"`
	KeyUp     string        `yaml:"key_up,omitempty" json:"key_up,omitempty"`
	Press     *PressStep    `yaml:"press,omitempty" json:"press,omitempty"`
	MouseMove *PointStep    `yaml:"mouse_move,omitempty" json:"mouse_move,omitempty"`
	MouseDown *PointStep    `yaml:"mouse_down,omitempty" json:"mouse_down,omitempty"`
	MouseUp   *PointStep    `yaml:"mouse_up,omitempty" json:"mouse_up,omitempty"`
	Click     *ClickStep    `yaml:"click,omitempty" json:"click,omitempty"`
	Answer    *string       `yaml:"answer,omitempty" json:"answer,omitempty"`
	Observe   *ObserveStep  `yaml:"observe,omitempty" json:"observe,omitempty"`
	AwaitSay  *AwaitSayStep `yaml:"await_say,omitempty" json:"await_say,omitempty"`
}

// PressStep holds a key for HoldMS milliseconds.
type PressStep struct {
	Key    string `yaml:"key" json:"key"`
	HoldMS int    `yaml:"hold_ms,omitempty" json:"hold_ms,omitempty"`
}

// PointStep is a stage coordinate.
type PointStep struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// ClickStep clicks at a stage coordinate.
type ClickStep struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	HoldMS int     `yaml:"hold_ms,omitempty" json:"hold_ms,omitempty"`
}

// ObserveStep samples fields of the scenario's sprite. A field named
// "var:<name>" samples a variable instead.
type ObserveStep struct {
	Fields     []string `yaml:"fields" json:"fields"`
	DurationMS int      `yaml:"duration_ms" json:"duration_ms"`
	IntervalMS int      `yaml:"interval_ms,omitempty" json:"interval_ms,omitempty"`

	// Absent is the policy when the sprite disappears: skip, record or stop.
	Absent string `yaml:"absent,omitempty" json:"absent,omitempty"`
}

// AwaitSayStep waits until the sprite says matching text. The case fails if
// nothing matches within TimeoutMS.
type AwaitSayStep struct {
	Text            string `yaml:"text,omitempty" json:"text,omitempty"`
	Contains        string `yaml:"contains,omitempty" json:"contains,omitempty"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	TimeoutMS       int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

// kind names the single field set on a step.
func (s Step) kind() (string, error) {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(s.Start != nil, "start")
	add(s.Stop != nil, "stop")
	add(s.Wait != nil, "wait")
	add(s.KeyDown != "", "key_down")
	add(s.KeyUp != "", "key_up")
	add(s.Press != nil, "press")
	add(s.MouseMove != nil, "mouse_move")
	add(s.MouseDown != nil, "mouse_down")
	add(s.MouseUp != nil, "mouse_up")
	add(s.Click != nil, "click")
	add(s.Answer != nil, "answer")
	add(s.Observe != nil, "observe")
	add(s.AwaitSay != nil, "await_say")

	switch len(set) {
	case 1:
		return set[0], nil
	case 0:
		return "", fmt.Errorf("empty step")
	default:
		return "", fmt.Errorf("step sets %s; exactly one is allowed", strings.Join(set, ", "))
	}
}

// LoadDefinition reads, strictly decodes and validates a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes YAML with unknown fields rejected, then validates
// the document against the embedded CUE schema and the structural rules.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := validateDefinition(&def); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	return &def, nil
}

// validateDefinition checks rules the schema cannot express.
func validateDefinition(d *Definition) error {
	if d.Sprite == "" && !d.SingleSprite {
		return fmt.Errorf("sprite is required unless single_sprite is set")
	}
	if _, err := timing.Seconds(d.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	seen := map[string]bool{}
	for i, c := range d.Cases {
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
		if _, err := timing.Seconds(c.Timeout); err != nil {
			return fmt.Errorf("cases[%d].timeout: %w", i, err)
		}

		observed := false
		for j, s := range c.Steps {
			k, err := s.kind()
			if err != nil {
				return fmt.Errorf("cases[%d].steps[%d]: %w", i, j, err)
			}
			if k == "observe" {
				observed = true
			}
			if k == "await_say" && (s.AwaitSay.Text == "") == (s.AwaitSay.Contains == "") {
				return fmt.Errorf("cases[%d].steps[%d]: await_say needs exactly one of text or contains", i, j)
			}
		}

		for j, e := range c.Expect {
			k, err := e.kind()
			if err != nil {
				return fmt.Errorf("cases[%d].expect[%d]: %w", i, j, err)
			}
			if e.needsHistory() && !observed {
				return fmt.Errorf("cases[%d].expect[%d]: %s needs an observe step", i, j, k)
			}
		}
	}
	return nil
}
