package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		logits   []float32
		wantFake bool
		wantProb float64
	}{
		{"equal logits stay not fake", []float32{0.3, 0.3}, false, 0.5},
		{"fake class wins", []float32{0, 1}, true, 1 / (1 + math.Exp(-1))},
		{"real class wins", []float32{2, -2}, false, 1 / (1 + math.Exp(4))},
		{"large magnitudes", []float32{-1000, 1000}, true, 1},
		{"large magnitudes reversed", []float32{1000, -1000}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decide(tt.logits)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFake, v.IsFakeNews)
			assert.InDelta(t, tt.wantProb, v.ConfidenceScore, 1e-9)
			assert.GreaterOrEqual(t, v.ConfidenceScore, 0.0)
			assert.LessOrEqual(t, v.ConfidenceScore, 1.0)
			assert.Equal(t, v.ConfidenceScore > FakeThreshold, v.IsFakeNews)
		})
	}
}

func TestDecideErrors(t *testing.T) {
	_, err := Decide([]float32{1, 2, 3})
	assert.ErrorContains(t, err, "expected 2 class logits, got 3")

	_, err = Decide(nil)
	assert.Error(t, err)

	_, err = Decide([]float32{float32(math.NaN()), 0})
	assert.ErrorContains(t, err, "non-finite")

	_, err = Decide([]float32{0, float32(math.Inf(1))})
	assert.ErrorContains(t, err, "non-finite")
}
