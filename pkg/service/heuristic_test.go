package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore float64
		wantFake  bool
	}{
		{"neutral", "The weather is nice today", 0.5, false},
		{"one phrase", "This is a secret plan", 0.6, false},
		{"two phrases", "Shocking secret revealed", 0.7, true},
		{"exclamation", "Wow, the weather!!!", 0.55, false},
		{"all caps", "THE WEATHER IS NICE", 0.55, false},
		{"short caps ignored", "HELLO", 0.5, false},
		{"capped", "FAKE CONSPIRACY SHOCKING SECRET BANNED CENSORED!!!", 0.9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := MockAnalyze(tt.text)
			assert.InDelta(t, tt.wantScore, v.ConfidenceScore, 1e-9)
			assert.Equal(t, tt.wantFake, v.IsFakeNews)
		})
	}
}

func TestHeuristicAnalyzer(t *testing.T) {
	v, err := NewHeuristicAnalyzer().Analyze(context.Background(), "banned and censored")
	require.NoError(t, err)
	assert.True(t, v.IsFakeNews)
	assert.InDelta(t, 0.7, v.ConfidenceScore, 1e-9)
}
