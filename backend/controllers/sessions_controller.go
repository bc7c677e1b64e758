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

type SessionsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSessionsController(db *gorm.DB, cfg *config.Config) *SessionsController {
	return &SessionsController{DB: db, Cfg: cfg}
}

// CreateSession godoc
// @Summary Create a chat session for a student
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param request body map[string]interface{} true "Session data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /students/{id}/sessions [post]
func (sc *SessionsController) CreateSession(c *fiber.Ctx) error {
	studentID, err := requireStudentAccess(c, sc.DB)
	if err != nil {
		return respondError(c, err)
	}

	type SessionInput struct {
		CourseID string `json:"course_id"`
	}
	var input SessionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.CourseID == "" {
		return utils.BadRequest(c, "course_id is required")
	}

	session := models.Session{
		StudentID: studentID,
		CourseID:  input.CourseID,
	}
	if err := sc.DB.Create(&session).Error; err != nil {
		return utils.InternalServerError(c, "Could not create session")
	}

	return utils.Created(c, session)
}

// GetSessions godoc
// @Summary List a student's chat sessions
// @Tags sessions
// @Produce json
// @Param id path int true "Student ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /students/{id}/sessions [get]
func (sc *SessionsController) GetSessions(c *fiber.Ctx) error {
	studentID, err := requireStudentAccess(c, sc.DB)
	if err != nil {
		return respondError(c, err)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	sc.DB.Model(&models.Session{}).Where("student_id = ?", studentID).Count(&total)

	var sessions []models.Session
	if err := sc.DB.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch sessions")
	}

	return utils.Paginate(c, sessions, total, page, pageSize)
}

// ownedSession loads a session and verifies the authenticated student owns it.
func (sc *SessionsController) ownedSession(c *fiber.Ctx) (*models.Session, error) {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session ID")
	}

	authID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var session models.Session
	if err := sc.DB.First(&session, uint(sessionID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if session.StudentID != authID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Access denied")
	}
	return &session, nil
}

// GetMessages godoc
// @Summary List messages in a session
// @Tags sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /sessions/{id}/messages [get]
func (sc *SessionsController) GetMessages(c *fiber.Ctx) error {
	session, err := sc.ownedSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var messages []models.Message
	if err := sc.DB.Where("session_id = ?", session.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch messages")
	}

	return c.JSON(fiber.Map{
		"session_id": session.ID,
		"messages":   messages,
	})
}

// CreateMessage godoc
// @Summary Append a message to a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body map[string]interface{} true "Message data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions/{id}/messages [post]
func (sc *SessionsController) CreateMessage(c *fiber.Ctx) error {
	session, err := sc.ownedSession(c)
	if err != nil {
		return respondError(c, err)
	}

	type MessageInput struct {
		Role      models.MessageRole `json:"role"`
		Content   string             `json:"content"`
		Tokens    int                `json:"tokens"`
		LatencyMs int                `json:"latency_ms"`
	}
	var input MessageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Content == "" || len(input.Content) > 10000 {
		return utils.BadRequest(c, "content must be 1-10000 characters")
	}
	switch input.Role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem:
	default:
		return utils.BadRequest(c, "role must be user, assistant or system")
	}

	message := models.Message{
		SessionID: session.ID,
		Role:      input.Role,
		Content:   input.Content,
		Tokens:    input.Tokens,
		LatencyMs: input.LatencyMs,
	}
	if err := sc.DB.Create(&message).Error; err != nil {
		return utils.InternalServerError(c, "Could not create message")
	}

	return utils.Created(c, message)
}
