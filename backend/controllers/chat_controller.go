package controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/middleware"
	"studyflow/backend/models"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

type ChatController struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Chat *services.ChatService
}

func NewChatController(db *gorm.DB, cfg *config.Config, chat *services.ChatService) *ChatController {
	return &ChatController{DB: db, Cfg: cfg, Chat: chat}
}

type chatInput struct {
	SessionID  uint   `json:"session_id"`
	CourseID   string `json:"course_id"`
	Message    string `json:"message"`
	Complexity string `json:"complexity"`
}

// resolveSession returns the session to chat in: the student's existing
// session when session_id is given, otherwise a fresh one for course_id.
func (cc *ChatController) resolveSession(studentID uint, input chatInput) (*models.Session, error) {
	if input.SessionID != 0 {
		var session models.Session
		if err := cc.DB.First(&session, input.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
			}
			return nil, err
		}
		if session.StudentID != studentID {
			return nil, fiber.NewError(fiber.StatusForbidden, "Access denied")
		}
		return &session, nil
	}

	courseID := input.CourseID
	if courseID == "" {
		courseID = "general"
	}
	session := models.Session{StudentID: studentID, CourseID: courseID}
	if err := cc.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// SendMessage godoc
// @Summary Send a chat message and get the full tutor reply
// @Tags chat
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Chat request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /chat [post]
func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input chatInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Message == "" {
		return utils.BadRequest(c, "message is required")
	}

	session, err := cc.resolveSession(studentID, input)
	if err != nil {
		return respondError(c, err)
	}

	result, err := cc.Chat.Chat(c.Context(), session, input.Message, input.Complexity)
	if err != nil {
		if errors.Is(err, services.ErrChatNotConfigured) {
			return utils.Error(c, fiber.StatusServiceUnavailable, err)
		}
		return utils.InternalServerError(c, "Chat completion failed")
	}

	return c.JSON(result)
}

// StreamMessage godoc
// @Summary Send a chat message and stream the tutor reply over SSE
// @Description Emits data frames {session_id, content, delta, finished} and a final [DONE] marker.
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param request body map[string]interface{} true "Chat request"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /chat/stream [post]
func (cc *ChatController) StreamMessage(c *fiber.Ctx) error {
	studentID, ok := middleware.AuthenticatedStudentID(c)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input chatInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Message == "" {
		return utils.BadRequest(c, "message is required")
	}

	session, err := cc.resolveSession(studentID, input)
	if err != nil {
		return respondError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.Context()
	chat := cc.Chat
	message := input.Message
	complexity := input.Complexity

	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		writeFrame := func(chunk services.StreamChunk) error {
			data, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			return w.Flush()
		}

		err := chat.ChatStream(ctx, session, message, complexity, writeFrame)
		if err != nil {
			// The status line is already sent; surface the failure in-band.
			payload, _ := json.Marshal(fiber.Map{"error": err.Error()})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			w.Flush()
			return
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

// GetModels godoc
// @Summary Describe the configured chat model
// @Tags chat
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /chat/models [get]
func (cc *ChatController) GetModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"current":           cc.Chat.ModelID(),
		"api_endpoint":      cc.Cfg.ChatBaseURL,
		"complexity_levels": []string{"brief", "standard", "deep"},
	})
}
