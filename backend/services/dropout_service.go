package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"studyflow/backend/models"
)

// DefaultLookbackDays is the engagement window for feature extraction.
const DefaultLookbackDays = 30

// PredictionMaxAge is how long a stored prediction stays fresh before a new
// one is computed.
const PredictionMaxAge = 24 * time.Hour

// DropoutService extracts engagement features from the database, runs the
// scorer and persists predictions. All I/O lives here; the scorer stays pure.
type DropoutService struct {
	DB     *gorm.DB
	Scorer *DropoutScorer
	Cache  *PredictionCache // optional, may be nil
}

func NewDropoutService(db *gorm.DB, scorer *DropoutScorer, cache *PredictionCache) *DropoutService {
	return &DropoutService{DB: db, Scorer: scorer, Cache: cache}
}

// ExtractFeatures computes the canonical feature vector for a student over
// the lookback window. A student with no activity yields the neutral-default
// vector, not an error.
func (s *DropoutService) ExtractFeatures(studentID uint, lookbackDays int) (map[string]float64, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	features := NeutralFeatures()

	var student models.Student
	if err := s.DB.First(&student, studentID).Error; err != nil {
		return nil, fmt.Errorf("fetch student: %w", err)
	}

	var sessions []models.Session
	if err := s.DB.Where("student_id = ? AND created_at >= ?", studentID, cutoff).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	features["session_frequency"] = float64(len(sessions)) / float64(lookbackDays)

	if len(sessions) > 0 {
		sessionIDs := make([]uint, 0, len(sessions))
		activeDays := make(map[string]struct{})
		for _, sess := range sessions {
			sessionIDs = append(sessionIDs, sess.ID)
			activeDays[sess.CreatedAt.Format("2006-01-02")] = struct{}{}
		}
		features["active_days"] = float64(len(activeDays))

		var totalMessages int64
		if err := s.DB.Model(&models.Message{}).
			Where("session_id IN ?", sessionIDs).
			Count(&totalMessages).Error; err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
		perSession := float64(totalMessages) / float64(len(sessions))
		features["avg_messages_per_session"] = perSession
		features["avg_session_length"] = perSession

		// Mean assistant latency over messages that recorded one.
		var avgLatency *float64
		if err := s.DB.Model(&models.Message{}).
			Where("session_id IN ? AND latency_ms > 0", sessionIDs).
			Select("AVG(latency_ms)").
			Scan(&avgLatency).Error; err != nil {
			return nil, fmt.Errorf("average latency: %w", err)
		}
		if avgLatency != nil {
			features["avg_latency_ms"] = *avgLatency
		}
	}

	if student.LastActive != nil {
		days := time.Since(*student.LastActive).Hours() / 24
		if days < 0 {
			days = 0
		}
		features["days_since_last_active"] = days
	}

	var skills []models.SkillProgress
	if err := s.DB.Where("student_id = ?", studentID).Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("fetch skill progress: %w", err)
	}
	if len(skills) > 0 {
		var masterySum float64
		var correct, attempts int
		for _, sp := range skills {
			masterySum += sp.Mastery
			correct += sp.NumCorrect
			attempts += sp.NumCorrect + sp.NumIncorrect
		}
		features["avg_mastery"] = masterySum / float64(len(skills))
		if attempts > 0 {
			features["correct_rate"] = float64(correct) / float64(attempts)
		}
	}

	return features, nil
}

// PredictAndSave computes a fresh prediction, stores it as a new row and
// updates the cache when one is configured.
func (s *DropoutService) PredictAndSave(studentID uint) (*models.DropoutPrediction, error) {
	features, err := s.ExtractFeatures(studentID, DefaultLookbackDays)
	if err != nil {
		return nil, err
	}
	if err := s.Scorer.Validate(features); err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	prediction := models.DropoutPrediction{
		StudentID:   studentID,
		RiskScore:   s.Scorer.Score(features),
		Features:    string(snapshot),
		PredictedAt: time.Now().UTC(),
	}
	if err := s.DB.Create(&prediction).Error; err != nil {
		return nil, fmt.Errorf("save prediction: %w", err)
	}

	if s.Cache != nil {
		s.Cache.Set(studentID, &prediction)
	}

	return &prediction, nil
}

// LatestPrediction returns the newest prediction younger than PredictionMaxAge,
// or nil when none qualifies. The cache is consulted first when configured.
func (s *DropoutService) LatestPrediction(studentID uint) (*models.DropoutPrediction, error) {
	if s.Cache != nil {
		if cached := s.Cache.Get(studentID); cached != nil {
			return cached, nil
		}
	}

	cutoff := time.Now().UTC().Add(-PredictionMaxAge)
	var prediction models.DropoutPrediction
	err := s.DB.Where("student_id = ? AND predicted_at >= ?", studentID, cutoff).
		Order("predicted_at DESC").
		First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch prediction: %w", err)
	}
	return &prediction, nil
}

// PredictionHistory returns recent predictions, newest first.
func (s *DropoutService) PredictionHistory(studentID uint, limit int) ([]models.DropoutPrediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var predictions []models.DropoutPrediction
	if err := s.DB.Where("student_id = ?", studentID).
		Order("predicted_at DESC").
		Limit(limit).
		Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return predictions, nil
}
