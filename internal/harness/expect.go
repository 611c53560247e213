package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/verdict"
)

// Expectation is one declared predicate. Exactly one field is set.
type Expectation struct {
	Displacement *DisplacementExpect `yaml:"displacement,omitempty" json:"displacement,omitempty"`
	Transition   *TransitionExpect   `yaml:"transition,omitempty" json:"transition,omitempty"`
	Alignment    *AlignmentExpect    `yaml:"alignment,omitempty" json:"alignment,omitempty"`
	Periodic     *PeriodicExpect     `yaml:"periodic,omitempty" json:"periodic,omitempty"`
	Ladder       *LadderExpect       `yaml:"ladder,omitempty" json:"ladder,omitempty"`
	Wrap         *WrapExpect         `yaml:"wrap,omitempty" json:"wrap,omitempty"`
	Say          *SayExpect          `yaml:"say,omitempty" json:"say,omitempty"`
	Variable     *VariableExpect     `yaml:"variable,omitempty" json:"variable,omitempty"`
	Costume      *CostumeExpect      `yaml:"costume,omitempty" json:"costume,omitempty"`
}

// DisplacementExpect: the field moved more than Epsilon from its start.
type DisplacementExpect struct {
	Field   string  `yaml:"field" json:"field"`
	Epsilon float64 `yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
}

// TransitionExpect: consecutive samples go From -> To.
type TransitionExpect struct {
	Field string `yaml:"field" json:"field"`
	From  any    `yaml:"from" json:"from"`
	To    any    `yaml:"to" json:"to"`
}

// AlignmentExpect: deltas of the field mostly share Sign.
type AlignmentExpect struct {
	Field     string  `yaml:"field" json:"field"`
	Sign      int     `yaml:"sign" json:"sign"`
	MinRatio  float64 `yaml:"min_ratio" json:"min_ratio"`
	MinFrames int     `yaml:"min_frames,omitempty" json:"min_frames,omitempty"`
	Epsilon   float64 `yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
}

// PeriodicExpect: the field steps at a near-regular cadence.
type PeriodicExpect struct {
	Field    string `yaml:"field" json:"field"`
	MinGapMS int    `yaml:"min_gap_ms,omitempty" json:"min_gap_ms,omitempty"`
	MaxGapMS int    `yaml:"max_gap_ms,omitempty" json:"max_gap_ms,omitempty"`
	MinGaps  int    `yaml:"min_gaps,omitempty" json:"min_gaps,omitempty"`
	Sign     int    `yaml:"sign,omitempty" json:"sign,omitempty"`
}

// LadderExpect: Values appear in order within the history.
type LadderExpect struct {
	Field  string    `yaml:"field" json:"field"`
	Values []float64 `yaml:"values" json:"values"`
}

// WrapExpect: the sprite wraps across opposite stage edges.
type WrapExpect struct {
	Axis          string  `yaml:"axis,omitempty" json:"axis,omitempty"`
	Edge          float64 `yaml:"edge" json:"edge"`
	Margin        float64 `yaml:"margin" json:"margin"`
	MaxOrthogonal float64 `yaml:"max_orthogonal,omitempty" json:"max_orthogonal,omitempty"`
	Sign          int     `yaml:"sign,omitempty" json:"sign,omitempty"`
}

// SayExpect: some say event during the case matches Text.
type SayExpect struct {
	Text            string `yaml:"text" json:"text"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	Contains        bool   `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// VariableExpect: a variable holds Equals at the end of the case.
type VariableExpect struct {
	Name            string `yaml:"name" json:"name"`
	Equals          any    `yaml:"equals" json:"equals"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
}

// CostumeExpect: the sprite shows a costume, by index (number) or name.
type CostumeExpect struct {
	Equals any `yaml:"equals" json:"equals"`
}

func (e Expectation) kind() (string, error) {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(e.Displacement != nil, "displacement")
	add(e.Transition != nil, "transition")
	add(e.Alignment != nil, "alignment")
	add(e.Periodic != nil, "periodic")
	add(e.Ladder != nil, "ladder")
	add(e.Wrap != nil, "wrap")
	add(e.Say != nil, "say")
	add(e.Variable != nil, "variable")
	add(e.Costume != nil, "costume")

	switch len(set) {
	case 1:
		return set[0], nil
	case 0:
		return "", fmt.Errorf("empty expectation")
	default:
		return "", fmt.Errorf("expectation sets %s; exactly one is allowed", strings.Join(set, ", "))
	}
}

// needsHistory reports whether the expectation judges an observation.
func (e Expectation) needsHistory() bool {
	return e.Displacement != nil || e.Transition != nil || e.Alignment != nil ||
		e.Periodic != nil || e.Ladder != nil || e.Wrap != nil
}

// ExpectationError describes an expectation that could not be evaluated.
type ExpectationError struct {
	Kind    string
	Message string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expectation %s: %s", e.Kind, e.Message)
}

// evaluate judges one expectation against the latest observation of a case.
// Unresolvable actors and variables become failing verdicts.
func (e Expectation) evaluate(ctx context.Context, env *Env, h *observe.History) (verdict.Verdict, error) {
	kind, err := e.kind()
	if err != nil {
		return verdict.Verdict{}, &ExpectationError{Kind: "unknown", Message: err.Error()}
	}

	var v verdict.Verdict
	switch kind {
	case "displacement":
		v = verdict.Displacement(h, e.Displacement.Field, e.Displacement.Epsilon)
	case "transition":
		v = verdict.Transition(h, e.Transition.Field, e.Transition.From, e.Transition.To)
	case "alignment":
		a := e.Alignment
		v = verdict.Alignment(h, a.Field, verdict.AlignmentOptions{
			Sign:      a.Sign,
			MinRatio:  a.MinRatio,
			MinFrames: a.MinFrames,
			Epsilon:   a.Epsilon,
		})
	case "periodic":
		p := e.Periodic
		v = verdict.PeriodicSteps(h, p.Field, verdict.PeriodicOptions{
			MinGap:  time.Duration(p.MinGapMS) * time.Millisecond,
			MaxGap:  time.Duration(p.MaxGapMS) * time.Millisecond,
			MinGaps: p.MinGaps,
			Sign:    p.Sign,
		})
	case "ladder":
		v = verdict.DescendingLadder(h, e.Ladder.Field, e.Ladder.Values)
	case "wrap":
		w := e.Wrap
		v = verdict.EdgeWrap(h, verdict.WrapOptions{
			Axis:          w.Axis,
			Edge:          w.Edge,
			Margin:        w.Margin,
			MaxOrthogonal: w.MaxOrthogonal,
			Sign:          w.Sign,
		})
	case "say":
		s := e.Say
		v = verdict.AnyMessage(env.Events.Texts(sim.EventSay), s.Text, verdict.MatchOptions{
			CaseInsensitive: s.CaseInsensitive,
			Contains:        s.Contains,
		})
	case "variable":
		val, err := env.Sampler.ReadVariable(ctx, env.Actor, e.Variable.Name)
		if err != nil {
			if !sim.IsNotFound(err) {
				return verdict.Verdict{}, err
			}
			v = verdict.Fail(map[string]any{"reason": err.Error()})
			break
		}
		v = verdict.ExactMatch(val, e.Variable.Equals, verdict.MatchOptions{CaseInsensitive: e.Variable.CaseInsensitive})
	case "costume":
		field := sim.FieldCostumeName
		switch e.Costume.Equals.(type) {
		case int, int64, float64:
			field = sim.FieldCostume
		}
		val, err := env.Sampler.Read(ctx, env.Actor, field)
		if err != nil {
			if !sim.IsNotFound(err) {
				return verdict.Verdict{}, err
			}
			v = verdict.Fail(map[string]any{"reason": err.Error()})
			break
		}
		v = verdict.ExactMatch(val, e.Costume.Equals, verdict.MatchOptions{})
	}

	if v.Meta == nil {
		v.Meta = map[string]any{}
	}
	v.Meta["kind"] = kind
	return v, nil
}
