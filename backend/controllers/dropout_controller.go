package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/middleware"
	"studyflow/backend/models"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

type DropoutController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Dropout *services.DropoutService
}

func NewDropoutController(db *gorm.DB, cfg *config.Config, dropout *services.DropoutService) *DropoutController {
	return &DropoutController{DB: db, Cfg: cfg, Dropout: dropout}
}

func predictionView(p *models.DropoutPrediction) fiber.Map {
	var features map[string]float64
	// Stored snapshots are written by this service; a decode failure just
	// leaves the field empty rather than failing the request.
	_ = json.Unmarshal([]byte(p.Features), &features)

	score100 := p.RiskScore * 100
	return fiber.Map{
		"id":           p.ID,
		"student_id":   p.StudentID,
		"risk_score":   p.RiskScore,
		"risk_level":   services.RiskLevel(score100),
		"features":     features,
		"predicted_at": p.PredictedAt,
	}
}

// GetRisk godoc
// @Summary Get the current student's dropout risk
// @Description Returns the latest prediction if younger than 24h, otherwise computes a new one. force_refresh always recomputes.
// @Tags dropout
// @Produce json
// @Param force_refresh query bool false "Force recomputation"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dropout/risk [get]
func (dc *DropoutController) GetRisk(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	forceRefresh := c.QueryBool("force_refresh", false)

	var prediction *models.DropoutPrediction
	var err error
	if !forceRefresh {
		prediction, err = dc.Dropout.LatestPrediction(studentID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch prediction")
		}
	}
	if prediction == nil {
		prediction, err = dc.Dropout.PredictAndSave(studentID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to compute prediction")
		}
		middleware.DropoutPredictionsTotal.
			WithLabelValues(services.RiskLevel(prediction.RiskScore * 100)).Inc()
	}

	return c.JSON(predictionView(prediction))
}

// GetFeatures godoc
// @Summary Get the current student's engagement features
// @Description Returns the feature vector without writing a prediction. Useful for understanding what drives the risk score.
// @Tags dropout
// @Produce json
// @Success 200 {object} map[string]float64
// @Security ApiKeyAuth
// @Router /dropout/features [get]
func (dc *DropoutController) GetFeatures(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	features, err := dc.Dropout.ExtractFeatures(studentID, services.DefaultLookbackDays)
	if err != nil {
		return utils.InternalServerError(c, "Failed to extract features")
	}

	return c.JSON(features)
}

// GetHistory godoc
// @Summary Get the current student's prediction history
// @Tags dropout
// @Produce json
// @Param limit query int false "Maximum predictions to return"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /dropout/history [get]
func (dc *DropoutController) GetHistory(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	limit := c.QueryInt("limit", 10)
	predictions, err := dc.Dropout.PredictionHistory(studentID, limit)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch history")
	}

	views := make([]fiber.Map, 0, len(predictions))
	for i := range predictions {
		views = append(views, predictionView(&predictions[i]))
	}

	return c.JSON(fiber.Map{
		"student_id":  studentID,
		"predictions": views,
	})
}
