package canbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVec2_Clamps(t *testing.T) {
	tests := []struct {
		name           string
		x, y           float64
		wantX, wantY   float64
	}{
		{"centered", 0, 0, 0, 0},
		{"in range", 0.25, -0.75, 0.25, -0.75},
		{"clamped both", 2.5, -3.0, 1.0, -1.0},
		{"clamped high", 1.0001, 0, 1.0, 0},
		{"clamped low", 0, -1.0001, 0, -1.0},
		{"bounds are inclusive", 1.0, -1.0, 1.0, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVec2(tt.x, tt.y)
			require.Equal(t, tt.wantX, v.X)
			require.Equal(t, tt.wantY, v.Y)
		})
	}
}

func TestVec2_ClampIdempotent(t *testing.T) {
	v := NewVec2(7.0, -7.0)
	again := NewVec2(v.X, v.Y)
	require.Equal(t, v, again)
}

func TestVec2_String(t *testing.T) {
	require.Equal(t, "(0.25, -1.00)", NewVec2(0.25, -3).String())
}
