package verdict

import "strings"

// ToggleState is the inferred on/off state of a switch-like actor.
type ToggleState string

const (
	ToggleOn      ToggleState = "on"
	ToggleOff     ToggleState = "off"
	ToggleUnknown ToggleState = "unknown"
)

// GhostOffThreshold is the ghost effect at or above which an actor whose
// costume name is inconclusive is taken to be off.
const GhostOffThreshold = 50

// InferToggleState guesses whether an actor is on or off from its costume
// name, falling back to its ghost effect.
//
// This is a naming heuristic and it is fragile: "off" is checked first so
// that "button_off" reads as off, but a costume called "button" reads as on
// and "lights-dim" falls through to the ghost effect. The second return value
// says which rule decided.
func InferToggleState(costumeName string, ghost float64) (ToggleState, string) {
	name := strings.ToLower(costumeName)
	switch {
	case strings.Contains(name, "off"):
		return ToggleOff, "costume name contains \"off\""
	case strings.Contains(name, "on"):
		return ToggleOn, "costume name contains \"on\""
	case ghost >= GhostOffThreshold:
		return ToggleOff, "ghost effect at or above threshold"
	case costumeName != "":
		return ToggleOn, "ghost effect below threshold"
	default:
		return ToggleUnknown, "no costume name"
	}
}

// Toggled passes when the inferred state differs between before and after.
func Toggled(beforeCostume string, beforeGhost float64, afterCostume string, afterGhost float64) Verdict {
	b, bWhy := InferToggleState(beforeCostume, beforeGhost)
	a, aWhy := InferToggleState(afterCostume, afterGhost)
	return Of(b != ToggleUnknown && a != ToggleUnknown && a != b, map[string]any{
		"before":        string(b),
		"before_reason": bWhy,
		"after":         string(a),
		"after_reason":  aWhy,
		"heuristic":     "costume-name",
	})
}
