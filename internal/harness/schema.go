package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var definitionSchema string

// SchemaError reports where a definition violates the schema.
type SchemaError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("schema: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

// ValidateDocument checks a decoded YAML document against the definition
// schema. Only the first violation is reported.
func ValidateDocument(doc map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(definitionSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile definition schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return formatSchemaError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Definition")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err)
	}
	return nil
}

// formatSchemaError keeps the first CUE error and its path.
func formatSchemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &SchemaError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}
