package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/models"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

type AnalyticsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Dropout *services.DropoutService
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config, dropout *services.DropoutService) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg, Dropout: dropout}
}

// GetStudentsWithRisk godoc
// @Summary List students with their latest dropout risk (admin)
// @Tags analytics
// @Produce json
// @Param min_risk query number false "Minimum risk score to include (0-100)"
// @Param limit query int false "Maximum students to return"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /analytics/students [get]
func (ac *AnalyticsController) GetStudentsWithRisk(c *fiber.Ctx) error {
	minRisk := c.QueryFloat("min_risk", 0)
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var students []models.Student
	if err := ac.DB.Limit(limit).Find(&students).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch students")
	}

	result := make([]fiber.Map, 0, len(students))
	var riskSum float64
	for _, student := range students {
		prediction, err := ac.Dropout.LatestPrediction(student.ID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch prediction")
		}
		if prediction == nil {
			prediction, err = ac.Dropout.PredictAndSave(student.ID)
			if err != nil {
				return utils.InternalServerError(c, "Failed to compute prediction")
			}
		}

		score100 := prediction.RiskScore * 100
		riskSum += score100
		if score100 < minRisk {
			continue
		}

		result = append(result, fiber.Map{
			"student_id":   student.ID,
			"username":     student.Username,
			"risk_score":   score100,
			"risk_level":   services.RiskLevel(score100),
			"last_active":  student.LastActive,
			"predicted_at": prediction.PredictedAt,
		})
	}

	var avgRisk float64
	if len(students) > 0 {
		avgRisk = riskSum / float64(len(students))
	}

	return c.JSON(fiber.Map{
		"students":       result,
		"total_scanned":  len(students),
		"total_returned": len(result),
		"avg_risk":       avgRisk,
	})
}
