package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/controllers"
	"studyflow/backend/middleware"
	"studyflow/backend/services"
)

// Services bundles the domain components constructed in main and shared by
// the controllers.
type Services struct {
	BKT     *services.BKTService
	Dropout *services.DropoutService
	Chat    *services.ChatService
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, svc Services) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Student routes
	studentsController := controllers.NewStudentsController(db, cfg)
	students := app.Group("/api/students", authMiddleware)
	students.Get("/me", studentsController.GetMe)
	students.Get("/:id", studentsController.GetStudent)

	// Session routes
	sessionsController := controllers.NewSessionsController(db, cfg)
	students.Post("/:id/sessions", sessionsController.CreateSession)
	students.Get("/:id/sessions", sessionsController.GetSessions)
	sessions := app.Group("/api/sessions", authMiddleware)
	sessions.Get("/:id/messages", sessionsController.GetMessages)
	sessions.Post("/:id/messages", sessionsController.CreateMessage)

	// Skill mastery routes
	progressController := controllers.NewProgressController(db, cfg, svc.BKT)
	students.Post("/:id/skills/:skillId/correct", progressController.RecordCorrect)
	students.Post("/:id/skills/:skillId/incorrect", progressController.RecordIncorrect)
	students.Get("/:id/skills", progressController.GetSkills)

	// Dropout risk routes
	dropoutController := controllers.NewDropoutController(db, cfg, svc.Dropout)
	dropout := app.Group("/api/dropout", authMiddleware)
	dropout.Get("/risk", dropoutController.GetRisk)
	dropout.Get("/features", dropoutController.GetFeatures)
	dropout.Get("/history", dropoutController.GetHistory)

	// Admin analytics
	analyticsController := controllers.NewAnalyticsController(db, cfg, svc.Dropout)
	analytics := app.Group("/api/analytics", authMiddleware, adminMiddleware)
	analytics.Get("/students", analyticsController.GetStudentsWithRisk)

	// Chat routes
	chatController := controllers.NewChatController(db, cfg, svc.Chat)
	chat := app.Group("/api/chat", authMiddleware)
	chat.Post("/", chatController.SendMessage)
	chat.Post("/stream", chatController.StreamMessage)
	chat.Get("/models", chatController.GetModels)
}
