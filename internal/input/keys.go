package input

import (
	"regexp"
	"strings"
)

// keyAliases maps common agent/automation key spellings onto DOM key names.
var keyAliases = map[string]string{
	"ctrl":       "Control",
	"control":    "Control",
	"cmd":        "Meta",
	"command":    "Meta",
	"meta":       "Meta",
	"win":        "Meta",
	"windows":    "Meta",
	"alt":        "Alt",
	"option":     "Alt",
	"shift":      "Shift",
	"esc":        "Escape",
	"escape":     "Escape",
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"space":      "Space",
	"spacebar":   "Space",
	"backspace":  "Backspace",
	"bksp":       "Backspace",
	"delete":     "Delete",
	"del":        "Delete",
	"insert":     "Insert",
	"ins":        "Insert",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pgup":       "PageUp",
	"pagedown":   "PageDown",
	"pgdn":       "PageDown",
	"left":       "ArrowLeft",
	"right":      "ArrowRight",
	"up":         "ArrowUp",
	"down":       "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"arrowright": "ArrowRight",
	"arrowup":    "ArrowUp",
	"arrowdown":  "ArrowDown",
}

var (
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]`)
	functionKey = regexp.MustCompile(`^f([1-9]|1[0-9]|2[0-4])$`)
)

// NormalizeKey maps a key spelling ("ctrl", "arrow_left", "f5", "Space") onto
// the DOM key name the simulation's keyboard intake expects. Unknown keys are
// returned trimmed and otherwise untouched, so single characters keep their
// case.
func NormalizeKey(key string) string {
	raw := strings.TrimSpace(key)
	if raw == "" {
		return raw
	}

	lowered := strings.ToLower(raw)
	if k, ok := keyAliases[lowered]; ok {
		return k
	}

	if k, ok := keyAliases[nonAlnum.ReplaceAllString(lowered, "")]; ok {
		return k
	}

	if functionKey.MatchString(lowered) {
		return strings.ToUpper(lowered)
	}

	return raw
}
