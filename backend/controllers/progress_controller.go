package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/middleware"
	"studyflow/backend/models"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
	BKT *services.BKTService
}

func NewProgressController(db *gorm.DB, cfg *config.Config, bkt *services.BKTService) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, BKT: bkt}
}

// RecordCorrect godoc
// @Summary Record a correct answer and update skill mastery
// @Tags progress
// @Produce json
// @Param id path int true "Student ID"
// @Param skillId path string true "Skill ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /students/{id}/skills/{skillId}/correct [post]
func (pc *ProgressController) RecordCorrect(c *fiber.Ctx) error {
	return pc.recordObservation(c, true)
}

// RecordIncorrect godoc
// @Summary Record an incorrect answer and update skill mastery
// @Tags progress
// @Produce json
// @Param id path int true "Student ID"
// @Param skillId path string true "Skill ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /students/{id}/skills/{skillId}/incorrect [post]
func (pc *ProgressController) RecordIncorrect(c *fiber.Ctx) error {
	return pc.recordObservation(c, false)
}

func (pc *ProgressController) recordObservation(c *fiber.Ctx, correct bool) error {
	studentID, err := requireStudentAccess(c, pc.DB)
	if err != nil {
		return respondError(c, err)
	}

	skillID := c.Params("skillId")
	if skillID == "" {
		return utils.BadRequest(c, "skillId is required")
	}

	var student models.Student
	if err := pc.DB.First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Student not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	progress, err := pc.BKT.UpdateProgress(studentID, skillID, correct)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMastery) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalServerError(c, "Failed to update progress")
	}

	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	middleware.MasteryUpdatesTotal.WithLabelValues(outcome).Inc()

	return c.JSON(fiber.Map{
		"student_id":    progress.StudentID,
		"skill_id":      progress.SkillID,
		"mastery":       progress.Mastery,
		"mastered":      pc.BKT.Model.IsMastered(progress.Mastery),
		"num_correct":   progress.NumCorrect,
		"num_incorrect": progress.NumIncorrect,
		"updated_at":    progress.UpdatedAt,
	})
}

// GetSkills godoc
// @Summary List all skill mastery records for a student
// @Tags progress
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /students/{id}/skills [get]
func (pc *ProgressController) GetSkills(c *fiber.Ctx) error {
	studentID, err := requireStudentAccess(c, pc.DB)
	if err != nil {
		return respondError(c, err)
	}

	skills, err := pc.BKT.StudentSkills(studentID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch skills")
	}

	type skillView struct {
		SkillID      string  `json:"skill_id"`
		Mastery      float64 `json:"mastery"`
		Mastered     bool    `json:"mastered"`
		NumCorrect   int     `json:"num_correct"`
		NumIncorrect int     `json:"num_incorrect"`
	}
	views := make([]skillView, 0, len(skills))
	for _, sp := range skills {
		views = append(views, skillView{
			SkillID:      sp.SkillID,
			Mastery:      sp.Mastery,
			Mastered:     pc.BKT.Model.IsMastered(sp.Mastery),
			NumCorrect:   sp.NumCorrect,
			NumIncorrect: sp.NumIncorrect,
		})
	}

	return c.JSON(fiber.Map{
		"student_id": studentID,
		"skills":     views,
	})
}
