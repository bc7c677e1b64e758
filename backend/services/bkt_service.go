package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"studyflow/backend/models"
)

// BKTService persists skill mastery around the pure BKT recurrence.
// Read-modify-write discipline for concurrent observations on the same
// (student, skill) pair lives here, not in the model.
type BKTService struct {
	DB    *gorm.DB
	Model BKTModel
}

func NewBKTService(db *gorm.DB, model BKTModel) *BKTService {
	return &BKTService{DB: db, Model: model}
}

// GetOrCreateProgress fetches the progress row for a (student, skill) pair,
// creating it with the initial mastery on first observation.
func (s *BKTService) GetOrCreateProgress(studentID uint, skillID string) (*models.SkillProgress, error) {
	var progress models.SkillProgress
	err := s.DB.Where("student_id = ? AND skill_id = ?", studentID, skillID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}

	progress = models.SkillProgress{
		StudentID: studentID,
		SkillID:   skillID,
		Mastery:   s.Model.PInitial,
	}
	if err := s.DB.Create(&progress).Error; err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	return &progress, nil
}

// UpdateProgress records one observation: validates the stored prior, runs the
// BKT update, bumps the correct/incorrect counter and saves the row.
func (s *BKTService) UpdateProgress(studentID uint, skillID string, correct bool) (*models.SkillProgress, error) {
	progress, err := s.GetOrCreateProgress(studentID, skillID)
	if err != nil {
		return nil, err
	}

	if err := ValidateMastery(progress.Mastery); err != nil {
		return nil, fmt.Errorf("stored prior for skill %q: %w", skillID, err)
	}

	progress.Mastery = s.Model.UpdateMastery(progress.Mastery, correct)
	if correct {
		progress.NumCorrect++
	} else {
		progress.NumIncorrect++
	}
	progress.UpdatedAt = time.Now().UTC()

	if err := s.DB.Save(progress).Error; err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return progress, nil
}

// StudentSkills returns mastery for every skill the student has touched.
func (s *BKTService) StudentSkills(studentID uint) ([]models.SkillProgress, error) {
	var skills []models.SkillProgress
	if err := s.DB.Where("student_id = ?", studentID).Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("fetch skills: %w", err)
	}
	return skills, nil
}
