package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBKTModel(t *testing.T) {
	model := DefaultBKTModel()
	assert.Equal(t, 0.5, model.PInitial)
	assert.Equal(t, 0.3, model.PTransition)
	assert.Equal(t, 0.2, model.PGuess)
	assert.Equal(t, 0.1, model.PSlip)
	assert.Equal(t, 0.95, model.MasteryThreshold)
}

func TestUpdateMasteryCorrectIncreases(t *testing.T) {
	model := DefaultBKTModel()

	updated := model.UpdateMastery(0.5, true)
	assert.Greater(t, updated, 0.5)
	assert.GreaterOrEqual(t, updated, 0.0)
	assert.LessOrEqual(t, updated, 1.0)
}

func TestUpdateMasteryIncorrectDecreases(t *testing.T) {
	model := DefaultBKTModel()

	updated := model.UpdateMastery(0.8, false)
	assert.Less(t, updated, 0.8)
	assert.GreaterOrEqual(t, updated, 0.0)
	assert.LessOrEqual(t, updated, 1.0)
}

func TestUpdateMasteryStaysInRange(t *testing.T) {
	model := DefaultBKTModel()

	for prior := 0.0; prior <= 1.0; prior += 0.05 {
		for _, correct := range []bool{true, false} {
			updated := model.UpdateMastery(prior, correct)
			assert.GreaterOrEqual(t, updated, 0.0, "prior=%v correct=%v", prior, correct)
			assert.LessOrEqual(t, updated, 1.0, "prior=%v correct=%v", prior, correct)
		}
	}
}

func TestUpdateMasteryBoundaries(t *testing.T) {
	model := DefaultBKTModel()

	low := model.UpdateMastery(0.0, false)
	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, low, 1.0)

	high := model.UpdateMastery(1.0, true)
	assert.GreaterOrEqual(t, high, 0.0)
	assert.LessOrEqual(t, high, 1.0)
}

func TestConsecutiveCorrectAnswers(t *testing.T) {
	model := DefaultBKTModel()

	mastery := 0.5
	for i := 0; i < 5; i++ {
		next := model.UpdateMastery(mastery, true)
		assert.Greater(t, next, mastery, "update %d must strictly increase", i+1)
		mastery = next
	}
	assert.Greater(t, mastery, 0.6)
}

func TestUpdateMasteryWorkedScenario(t *testing.T) {
	// prior 0.5, correct, (g=0.2, s=0.1, t=0.3):
	// evidence = 0.5*0.9 / (0.5*0.9 + 0.5*0.2) = 0.8182
	// transition = 0.8182 + 0.1818*0.3 = 0.8727
	model := DefaultBKTModel()

	updated := model.UpdateMastery(0.5, true)
	assert.InDelta(t, 0.8727, updated, 0.0001)
}

func TestUpdateMasteryDegenerateDenominator(t *testing.T) {
	// prior 0 with zero guess probability: the evidence step has a zero
	// denominator and must fall back to the unchanged prior before the
	// transition step.
	model := DefaultBKTModel()
	model.PGuess = 0

	updated := model.UpdateMastery(0.0, true)
	assert.InDelta(t, model.PTransition, updated, 1e-12)
}

func TestIsMasteredThreshold(t *testing.T) {
	model := DefaultBKTModel()

	assert.True(t, model.IsMastered(model.MasteryThreshold))
	assert.False(t, model.IsMastered(model.MasteryThreshold-0.01))
	assert.True(t, model.IsMastered(1.0))
}

func TestValidateMastery(t *testing.T) {
	require.NoError(t, ValidateMastery(0.0))
	require.NoError(t, ValidateMastery(0.5))
	require.NoError(t, ValidateMastery(1.0))

	assert.ErrorIs(t, ValidateMastery(-0.01), ErrInvalidMastery)
	assert.ErrorIs(t, ValidateMastery(1.01), ErrInvalidMastery)
}
