package sim

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundKind categorizes what could not be resolved.
type NotFoundKind string

const (
	NotFoundActor    NotFoundKind = "actor"
	NotFoundVariable NotFoundKind = "variable"
	NotFoundList     NotFoundKind = "list"
)

// NotFoundError reports that a named actor, variable or list could not be
// resolved. It is a normal outcome for a case (a failing verdict), never a
// reason to abort a scenario.
type NotFoundError struct {
	Kind NotFoundKind
	Name string

	// Tried lists every name attempted during resolution, in order.
	Tried []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Tried) > 1 {
		return fmt.Sprintf("NOT_FOUND: %s %q (tried %s)", e.Kind, e.Name, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("NOT_FOUND: %s %q", e.Kind, e.Name)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
