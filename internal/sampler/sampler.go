// Package sampler reads point-in-time state from the simulation: actor
// position, heading, costume and variables.
//
// Actor resolution follows one policy everywhere: the exact declared name
// first, then each alias in order, then (when allowed) the only non-stage
// actor present. Variable names are matched case-insensitively, actor-local
// scope before the stage's global scope.
package sampler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/scratchbench/internal/sim"
)

// ActorQuery describes which actor to read.
type ActorQuery struct {
	// Name is the declared sprite name.
	Name string

	// Aliases are tried in order when Name does not resolve.
	Aliases []string

	// SingleActorFallback resolves to the one non-stage actor when neither
	// Name nor any alias matches and exactly one sprite exists.
	SingleActorFallback bool
}

// Stage returns a query that resolves to the stage.
func Stage() ActorQuery {
	return ActorQuery{Name: stageName}
}

const stageName = "Stage"

func (q ActorQuery) isStage() bool {
	return q.Name == stageName && len(q.Aliases) == 0
}

// Position is a point in stage coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sampler reads state from one simulation.
type Sampler struct {
	h sim.Handle
}

// New creates a Sampler bound to h.
func New(h sim.Handle) *Sampler {
	return &Sampler{h: h}
}

// foldName is the comparison key for variable names. A Caser carries state,
// so a fresh one is built per call.
func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Resolve finds the actor a query designates.
func (s *Sampler) Resolve(ctx context.Context, q ActorQuery) (sim.Actor, error) {
	actors, err := s.h.Actors(ctx)
	if err != nil {
		return sim.Actor{}, fmt.Errorf("list actors: %w", err)
	}

	if q.isStage() {
		for _, a := range actors {
			if a.IsStage {
				return a, nil
			}
		}
		return sim.Actor{}, &sim.NotFoundError{Kind: sim.NotFoundActor, Name: stageName}
	}

	tried := make([]string, 0, 1+len(q.Aliases))
	for _, name := range append([]string{q.Name}, q.Aliases...) {
		if name == "" {
			continue
		}
		tried = append(tried, name)
		for _, a := range actors {
			if !a.IsStage && a.Name == name {
				return a, nil
			}
		}
	}

	if q.SingleActorFallback {
		var only []sim.Actor
		for _, a := range actors {
			if !a.IsStage {
				only = append(only, a)
			}
		}
		if len(only) == 1 {
			return only[0], nil
		}
		tried = append(tried, "<single sprite>")
	}

	return sim.Actor{}, &sim.NotFoundError{Kind: sim.NotFoundActor, Name: q.Name, Tried: tried}
}

// Read resolves the actor and reads one field.
func (s *Sampler) Read(ctx context.Context, q ActorQuery, field sim.Field) (any, error) {
	actor, err := s.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.h.ReadField(ctx, actor, field)
}

func (s *Sampler) readNumber(ctx context.Context, actor sim.Actor, field sim.Field) (float64, error) {
	v, err := s.h.ReadField(ctx, actor, field)
	if err != nil {
		return 0, err
	}
	n, ok := sim.ToNumber(v)
	if !ok {
		return 0, fmt.Errorf("%s of %q is not numeric: %v", field, actor.Name, v)
	}
	return n, nil
}

// ReadPosition returns the actor's x/y.
func (s *Sampler) ReadPosition(ctx context.Context, q ActorQuery) (Position, error) {
	actor, err := s.Resolve(ctx, q)
	if err != nil {
		return Position{}, err
	}
	x, err := s.readNumber(ctx, actor, sim.FieldX)
	if err != nil {
		return Position{}, err
	}
	y, err := s.readNumber(ctx, actor, sim.FieldY)
	if err != nil {
		return Position{}, err
	}
	return Position{X: x, Y: y}, nil
}

// ReadHeading returns the actor's direction in degrees.
func (s *Sampler) ReadHeading(ctx context.Context, q ActorQuery) (float64, error) {
	actor, err := s.Resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	return s.readNumber(ctx, actor, sim.FieldDirection)
}

// ReadCostumeIndex returns the zero-based index of the actor's costume.
func (s *Sampler) ReadCostumeIndex(ctx context.Context, q ActorQuery) (int, error) {
	actor, err := s.Resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := s.readNumber(ctx, actor, sim.FieldCostume)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ReadVariable looks a scalar variable up by display name, ignoring case:
// first on the actor designated by scope, then on the stage. A zero scope
// (empty Name, no aliases, no fallback) searches the stage only.
func (s *Sampler) ReadVariable(ctx context.Context, scope ActorQuery, name string) (any, error) {
	v, err := s.findVariable(ctx, scope, name, sim.KindScalar)
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

// ReadList looks a list up the same way ReadVariable does.
func (s *Sampler) ReadList(ctx context.Context, scope ActorQuery, name string) ([]any, error) {
	v, err := s.findVariable(ctx, scope, name, sim.KindList)
	if err != nil {
		return nil, err
	}
	items, _ := v.Value.([]any)
	return items, nil
}

func (s *Sampler) findVariable(ctx context.Context, scope ActorQuery, name string, kind sim.VariableKind) (sim.Variable, error) {
	var scopes []sim.Actor
	if scope.Name != "" || len(scope.Aliases) > 0 || scope.SingleActorFallback {
		actor, err := s.Resolve(ctx, scope)
		switch {
		case err == nil:
			scopes = append(scopes, actor)
		case !sim.IsNotFound(err):
			return sim.Variable{}, err
		}
	}
	if stage, err := s.Resolve(ctx, Stage()); err == nil && (len(scopes) == 0 || !scopes[0].IsStage) {
		scopes = append(scopes, stage)
	}

	want := foldName(name)
	for _, actor := range scopes {
		vars, err := s.h.Variables(ctx, actor)
		if err != nil {
			if sim.IsNotFound(err) {
				continue
			}
			return sim.Variable{}, fmt.Errorf("list variables of %q: %w", actor.Name, err)
		}
		for _, v := range vars {
			if v.Kind == kind && foldName(v.Name) == want {
				return v, nil
			}
		}
	}

	nfKind := sim.NotFoundVariable
	if kind == sim.KindList {
		nfKind = sim.NotFoundList
	}
	return sim.Variable{}, &sim.NotFoundError{Kind: nfKind, Name: name}
}

// Snapshot reads several fields of one actor at once, keyed by field name.
func (s *Sampler) Snapshot(ctx context.Context, q ActorQuery, fields ...sim.Field) (map[string]any, error) {
	actor, err := s.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := s.h.ReadField(ctx, actor, f)
		if err != nil {
			return nil, err
		}
		values[string(f)] = v
	}
	return values, nil
}
