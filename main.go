package main

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"mailery/config"
	"mailery/routes"
	"mailery/utils"
)

func main() {
	appLogger := logrus.New()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		appLogger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis is optional; stat caching degrades to direct queries without it
	config.ConnectRedis()

	// Error reporting is optional too
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			appLogger.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(cors.New())

	// Outbound SMTP transport shared by the dispatcher and the
	// confirmation mailer
	mailer := utils.NewSMTPMailer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	routes.SetupRoutes(app, config.DB, mailer, appLogger)

	appLogger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		appLogger.Fatalf("Failed to start server: %v", err)
	}
}
