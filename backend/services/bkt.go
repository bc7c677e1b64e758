// Package services holds the domain logic behind the HTTP layer: the BKT
// mastery tracker, the dropout risk scorer, and the tutor chat client.
package services

import (
	"errors"
	"fmt"

	"studyflow/backend/config"
)

// ErrInvalidMastery reports a mastery value outside [0, 1]. Inputs are
// rejected, never silently clamped; only computed outputs are clamped.
var ErrInvalidMastery = errors.New("mastery out of range [0, 1]")

// BKTModel implements Bayesian Knowledge Tracing: a two-state hidden model
// (mastered / not mastered) updated from observed answer correctness.
//
// Parameters:
//   - PInitial: prior mastery before any evidence
//   - PTransition: probability of moving from unmastered to mastered after any attempt
//   - PGuess: probability of a correct answer while unmastered
//   - PSlip: probability of an incorrect answer while mastered
//   - MasteryThreshold: mastery level above which a skill counts as mastered
type BKTModel struct {
	PInitial         float64
	PTransition      float64
	PGuess           float64
	PSlip            float64
	MasteryThreshold float64
}

// NewBKTModel builds the model from deployment configuration.
func NewBKTModel(cfg *config.Config) BKTModel {
	return BKTModel{
		PInitial:         cfg.BKTInitial,
		PTransition:      cfg.BKTTransition,
		PGuess:           cfg.BKTGuess,
		PSlip:            cfg.BKTSlip,
		MasteryThreshold: cfg.BKTThreshold,
	}
}

// DefaultBKTModel returns the canonical parameter set.
func DefaultBKTModel() BKTModel {
	return BKTModel{
		PInitial:         0.5,
		PTransition:      0.3,
		PGuess:           0.2,
		PSlip:            0.1,
		MasteryThreshold: 0.95,
	}
}

// UpdateMastery returns the posterior mastery probability after observing one
// answer. Pure and total over prior in [0, 1]: a degenerate Bayes denominator
// (prior exactly 0 or 1 with a zero conditioning probability) yields the
// unchanged prior rather than an error.
func (m BKTModel) UpdateMastery(prior float64, correct bool) float64 {
	var posterior float64
	if correct {
		// P(mastered | correct)
		numerator := prior * (1 - m.PSlip)
		denominator := numerator + (1-prior)*m.PGuess
		if denominator > 0 {
			posterior = numerator / denominator
		} else {
			posterior = prior
		}
	} else {
		// P(mastered | incorrect)
		numerator := prior * m.PSlip
		denominator := numerator + (1-prior)*(1-m.PGuess)
		if denominator > 0 {
			posterior = numerator / denominator
		} else {
			posterior = prior
		}
	}

	// Learning transition: the student may acquire the skill on any attempt,
	// including a failed one.
	updated := posterior + (1-posterior)*m.PTransition

	return clamp01(updated)
}

// IsMastered reports whether the mastery level crosses the configured threshold.
func (m BKTModel) IsMastered(mastery float64) bool {
	return mastery >= m.MasteryThreshold
}

// ValidateMastery rejects values outside the model's domain.
func ValidateMastery(mastery float64) error {
	if mastery < 0 || mastery > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidMastery, mastery)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
