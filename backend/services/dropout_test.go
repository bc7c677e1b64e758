package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralFeaturesCoversSchema(t *testing.T) {
	neutral := NeutralFeatures()
	require.Len(t, neutral, len(FeatureNames))
	for _, name := range FeatureNames {
		_, ok := neutral[name]
		assert.True(t, ok, "missing neutral default for %s", name)
	}
}

func TestScoreStaysInRange(t *testing.T) {
	scorer := NewDropoutScorer()

	vectors := []map[string]float64{
		{},
		NeutralFeatures(),
		{
			"session_frequency":        5,
			"avg_messages_per_session": 50,
			"days_since_last_active":   100,
			"avg_session_length":       30,
			"avg_latency_ms":           60000,
			"avg_mastery":              1,
			"correct_rate":             1,
			"active_days":              30,
		},
	}
	for _, features := range vectors {
		score := scorer.Score(features)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestScoreZeroActivityIsHighRisk(t *testing.T) {
	scorer := NewDropoutScorer()

	score := scorer.Score(NeutralFeatures())
	assert.Greater(t, score, 0.5)
}

func TestScoreHighEngagementIsLowRisk(t *testing.T) {
	scorer := NewDropoutScorer()

	score := scorer.Score(map[string]float64{
		"session_frequency":        2.0,
		"avg_messages_per_session": 12,
		"days_since_last_active":   0,
		"avg_session_length":       8,
		"avg_latency_ms":           800,
		"avg_mastery":              0.9,
		"correct_rate":             0.85,
		"active_days":              20,
	})
	assert.Less(t, score, 0.5)
}

func TestScoreMissingKeysUseNeutralDefaults(t *testing.T) {
	scorer := NewDropoutScorer()

	// An empty vector must score identically to the explicit neutral vector.
	assert.Equal(t, scorer.Score(NeutralFeatures()), scorer.Score(map[string]float64{}))
}

func TestScoreMonotoneInInactivity(t *testing.T) {
	scorer := NewDropoutScorer()

	engaged := map[string]float64{
		"session_frequency":        1,
		"avg_messages_per_session": 10,
		"days_since_last_active":   1,
		"avg_session_length":       5,
		"avg_latency_ms":           1000,
		"avg_mastery":              0.8,
		"correct_rate":             0.8,
		"active_days":              10,
	}
	lapsed := map[string]float64{}
	for k, v := range engaged {
		lapsed[k] = v
	}
	lapsed["days_since_last_active"] = 12

	assert.Greater(t, scorer.Score(lapsed), scorer.Score(engaged))
}

func TestValidateFeatures(t *testing.T) {
	scorer := NewDropoutScorer()

	require.NoError(t, scorer.Validate(NeutralFeatures()))
	require.NoError(t, scorer.Validate(map[string]float64{}))

	assert.ErrorIs(t, scorer.Validate(map[string]float64{"avg_mastery": 1.5}), ErrInvalidFeature)
	assert.ErrorIs(t, scorer.Validate(map[string]float64{"correct_rate": -0.1}), ErrInvalidFeature)
	assert.ErrorIs(t, scorer.Validate(map[string]float64{"session_frequency": -1}), ErrInvalidFeature)
}

func TestRiskLevelBuckets(t *testing.T) {
	assert.Equal(t, "low", RiskLevel(0))
	assert.Equal(t, "low", RiskLevel(29.9))
	assert.Equal(t, "medium", RiskLevel(30))
	assert.Equal(t, "medium", RiskLevel(59.9))
	assert.Equal(t, "high", RiskLevel(60))
	assert.Equal(t, "high", RiskLevel(100))
}
