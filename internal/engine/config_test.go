package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPresetsAreValid(t *testing.T) {
	for name, cfg := range map[string]*MatchingConfig{
		"default": DefaultMatchingConfig(),
		"strict":  StrictMatchingConfig(),
		"relaxed": RelaxedMatchingConfig(),
	} {
		assert.NoError(t, cfg.Validate(), "preset %s", name)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MatchingConfig)
	}{
		{"confidence above one", func(c *MatchingConfig) { c.ConfidenceThreshold = 1.5 }},
		{"negative auto threshold", func(c *MatchingConfig) { c.AutoReconcileThreshold = -0.1 }},
		{"zero max suggestions", func(c *MatchingConfig) { c.MaxSuggestions = 0 }},
		{"negative tolerance", func(c *MatchingConfig) { c.CloseTolerance = decimal.NewFromInt(-1) }},
		{"zero date horizon", func(c *MatchingConfig) { c.DateHorizonDays = 0 }},
		{"negative date window", func(c *MatchingConfig) { c.DateWindowDays = -1 }},
		{"combination size one", func(c *MatchingConfig) { c.MaxCombinationSize = 1 }},
		{"zero search budget", func(c *MatchingConfig) { c.MaxCombinationSearchMillis = 0 }},
		{"weights not summing", func(c *MatchingConfig) { c.Weights = Weights{Amount: 0.9, Text: 0.9} }},
		{"weight out of range", func(c *MatchingConfig) { c.Weights.Amount = 1.4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMatchingConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultMatchingConfig()
	clone := original.Clone()

	require.NotNil(t, clone)
	clone.ConfidenceThreshold = 0.99
	clone.Weights.Amount = 0.0

	assert.Equal(t, 0.5, original.ConfidenceThreshold)
	assert.Equal(t, 0.4, original.Weights.Amount)
}
