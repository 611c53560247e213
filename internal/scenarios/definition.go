package scenarios

import (
	"fmt"

	"github.com/roach88/scratchbench/internal/harness"
)

// FromDefinition wraps a declarative definition as a registry entry. The
// definition is compiled once up front so errors surface at registration;
// Build compiles it again for every run. Definition entries have no
// reference world.
func FromDefinition(d *harness.Definition) (Entry, error) {
	if _, err := d.Compile(); err != nil {
		return Entry{}, fmt.Errorf("scenario %s: %w", d.Name, err)
	}
	return Entry{
		Name:        d.Name,
		Description: d.Description,
		Build: func() *harness.Scenario {
			sc, err := d.Compile()
			if err != nil {
				// Compiled successfully above and definitions are not mutated.
				panic(err)
			}
			return sc
		},
	}, nil
}

// LoadFiles parses every definition file and registers it. The first
// failure stops the load.
func (r *Registry) LoadFiles(paths ...string) error {
	for _, path := range paths {
		d, err := harness.LoadDefinition(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		e, err := FromDefinition(d)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := r.Register(e); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
