package main

import (
	"log"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studyflow/backend/config"
	"studyflow/backend/middleware"
	"studyflow/backend/routes"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Optional redis cache for dropout predictions
	cache, err := services.NewPredictionCache(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Error connecting to redis: %v", err)
	}

	// Domain components, constructed once and passed to the handlers
	bktService := services.NewBKTService(db, services.NewBKTModel(cfg))
	dropoutService := services.NewDropoutService(db, services.NewDropoutScorer(), cache)
	chatService := services.NewChatService(db, cfg)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	middleware.RegisterMetrics(registry)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.LoggingMiddleware(logger))

	// Liveness and metrics
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "StudyFlow API",
			"version": "1.0.0",
			"status":  "running",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, routes.Services{
		BKT:     bktService,
		Dropout: dropoutService,
		Chat:    chatService,
	})

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
