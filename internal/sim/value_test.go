package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{float64(3.5), 3.5, true},
		{7, 7, true},
		{int64(-2), -2, true},
		{" 42 ", 42, true},
		{"-90", -90, true},
		{true, 1, true},
		{"", 0, false},
		{"abc", 0, false},
		{math.NaN(), 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %#v", tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "input %#v", tt.in)
		}
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "5", ToString(float64(5)))
	assert.Equal(t, "2.5", ToString(2.5))
	assert.Equal(t, "hello", ToString("hello"))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "3", ToString(3))
}
