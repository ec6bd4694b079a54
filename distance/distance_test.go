package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"empty", nil, nil, 0},
		{"unit", []float32{1, 0}, []float32{0.9, 0.1}, 0.9},
		{"tail", []float32{1, 2, 3, 4, 5}, []float32{1, 1, 1, 1, 1}, 15},
		{"negative", []float32{1, -1, 2}, []float32{-1, 1, 0.5}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Dot(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	v, ok := NormalizeL2Copy([]float32{3, 4})
	assert.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Norm(v), 1e-6)

	_, ok = NormalizeL2Copy([]float32{0, 0})
	assert.False(t, ok)
	assert.False(t, NormalizeL2InPlace(nil))
}
