package services

import (
	"errors"
	"fmt"
)

// ErrInvalidFeature reports a feature value outside its documented range.
var ErrInvalidFeature = errors.New("feature value out of range")

// FeatureNames is the canonical ordered feature set for dropout scoring:
// derived engagement aggregates computed over a 30-day lookback window.
var FeatureNames = []string{
	"session_frequency",        // sessions per day
	"avg_messages_per_session", // messages per session
	"days_since_last_active",   // days since the student was last seen
	"avg_session_length",       // messages per session (length proxy)
	"avg_latency_ms",           // mean assistant response latency
	"avg_mastery",              // mean BKT mastery across skills, 0..1
	"correct_rate",             // correct answers / total attempts, 0..1
	"active_days",              // distinct days with at least one session
}

// NeutralFeatures is the per-feature default used when a signal is absent.
// A student with no recorded activity reads as fully disengaged (14 days
// since last active, zero everything else), which the scorer maps to high
// risk. Absent data is never an error.
func NeutralFeatures() map[string]float64 {
	return map[string]float64{
		"session_frequency":        0,
		"avg_messages_per_session": 0,
		"days_since_last_active":   14,
		"avg_session_length":       0,
		"avg_latency_ms":           0,
		"avg_mastery":              0,
		"correct_rate":             0,
		"active_days":              0,
	}
}

// DropoutScorer maps an engagement feature vector to a dropout risk score in
// [0, 1]. Each feature contributes a clamped linear term relative to a
// reference level, weighted so the weights sum to 1.0. Stateless and pure.
type DropoutScorer struct{}

func NewDropoutScorer() *DropoutScorer {
	return &DropoutScorer{}
}

// Validate rejects feature values outside their documented domain. Rates and
// mastery must lie in [0, 1]; counts and durations must be non-negative.
func (s *DropoutScorer) Validate(features map[string]float64) error {
	for _, name := range []string{"avg_mastery", "correct_rate"} {
		if v, ok := features[name]; ok && (v < 0 || v > 1) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidFeature, name, v)
		}
	}
	for _, name := range FeatureNames {
		if v, ok := features[name]; ok && v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidFeature, name, v)
		}
	}
	return nil
}

// Score computes the risk score. Missing keys fall back to their neutral
// defaults; the final sum is clamped to [0, 1].
func (s *DropoutScorer) Score(features map[string]float64) float64 {
	get := func(name string) float64 {
		if v, ok := features[name]; ok {
			return v
		}
		return NeutralFeatures()[name]
	}

	risk := 0.0
	risk += clamp01(1.0-get("session_frequency")) * 0.15
	risk += clamp01(1.0-get("avg_messages_per_session")/10) * 0.10
	risk += clamp01(get("days_since_last_active")/14) * 0.20
	risk += clamp01(1.0-get("avg_session_length")/5) * 0.10
	risk += clamp01(get("avg_latency_ms")/10000) * 0.05
	risk += clamp01(1.0-get("avg_mastery")) * 0.15
	risk += clamp01(1.0-get("correct_rate")) * 0.15
	risk += clamp01(1.0-get("active_days")/10) * 0.10

	return clamp01(risk)
}

// RiskLevel buckets a 0-100 score for display: low < 30, medium < 60,
// high otherwise.
func RiskLevel(score100 float64) string {
	switch {
	case score100 < 30:
		return "low"
	case score100 < 60:
		return "medium"
	default:
		return "high"
	}
}
