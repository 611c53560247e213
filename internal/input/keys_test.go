package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"ctrl":        "Control",
		"CMD":         "Meta",
		"option":      "Alt",
		" esc ":       "Escape",
		"return":      "Enter",
		"spacebar":    "Space",
		"left":        "ArrowLeft",
		"ArrowRight":  "ArrowRight",
		"arrow_left":  "ArrowLeft",
		"page-down":   "PageDown",
		"f5":          "F5",
		"F12":         "F12",
		"f1":          "F1",
		"f24":         "F24",
		"f0":          "f0",
		"f25":         "f25",
		"F99":         "F99",
		"f05":         "f05",
		"a":           "a",
		"A":           "A",
		"":            "",
		"unknown-key": "unknown-key",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), "input %q", in)
	}
}
