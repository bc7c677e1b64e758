package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/middleware"
	"studyflow/backend/models"
	"studyflow/backend/utils"
)

type StudentsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewStudentsController(db *gorm.DB, cfg *config.Config) *StudentsController {
	return &StudentsController{DB: db, Cfg: cfg}
}

// respondError maps a fiber.Error to its status code and anything else to 500.
func respondError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return utils.Error(c, fiberErr.Code, err)
	}
	return utils.InternalServerError(c, err.Error())
}

// requireStudentAccess parses the :id param and allows access when the
// authenticated student is the record owner or an admin.
func requireStudentAccess(c *fiber.Ctx, db *gorm.DB) (uint, error) {
	targetID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid student ID")
	}

	authID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	if uint(targetID) == authID {
		return uint(targetID), nil
	}

	var student models.Student
	if err := db.First(&student, authID).Error; err != nil || student.Role != "admin" {
		return 0, fiber.NewError(fiber.StatusForbidden, "Access denied")
	}
	return uint(targetID), nil
}

// GetMe godoc
// @Summary Get current student profile
// @Tags students
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /students/me [get]
func (sc *StudentsController) GetMe(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var student models.Student
	if err := sc.DB.First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Student profile not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(student)
}

// GetStudent godoc
// @Summary Get a student by ID (self or admin)
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /students/{id} [get]
func (sc *StudentsController) GetStudent(c *fiber.Ctx) error {
	studentID, err := requireStudentAccess(c, sc.DB)
	if err != nil {
		return respondError(c, err)
	}

	var student models.Student
	if err := sc.DB.First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Student not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(student)
}
