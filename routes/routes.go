package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailery/config"
	controller "mailery/controllers"
	"mailery/middleware"
	"mailery/utils"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, mailer utils.Mailer) {
	authController := controller.NewAuthController(db, mailer, log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile))

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", middleware.RegisterRateLimiter(), authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)
	auth.Get("/confirm/:token", authController.ConfirmEmail)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", authController.GetCurrentUser)
	protectedAuth.Put("/profile", authController.UpdateProfile)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, dispatcher *utils.Dispatcher) {
	clientController := controller.NewClientController(db, log.New(os.Stdout, "CLIENT: ", log.LstdFlags))
	messageController := controller.NewMessageController(db, log.New(os.Stdout, "MESSAGE: ", log.LstdFlags))
	mailingController := controller.NewMailingController(db, dispatcher, log.New(os.Stdout, "MAILING: ", log.LstdFlags))
	attemptController := controller.NewAttemptController(db, log.New(os.Stdout, "ATTEMPT: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	// Client routes
	client := api.Group("/clients")
	client.Post("/", clientController.CreateClient)
	client.Get("/", clientController.GetClients)
	client.Get("/:id", clientController.GetClient)
	client.Put("/:id", clientController.UpdateClient)
	client.Delete("/:id", clientController.DeleteClient)

	// Message routes
	message := api.Group("/messages")
	message.Post("/", messageController.CreateMessage)
	message.Get("/", messageController.GetMessages)
	message.Get("/:id", messageController.GetMessage)
	message.Put("/:id", messageController.UpdateMessage)
	message.Delete("/:id", messageController.DeleteMessage)

	// Mailing routes
	mailing := api.Group("/mailings")
	mailing.Post("/", mailingController.CreateMailing)
	mailing.Get("/", mailingController.GetMailings)
	mailing.Get("/:id", mailingController.GetMailing)
	mailing.Put("/:id", mailingController.UpdateMailing)
	mailing.Delete("/:id", mailingController.DeleteMailing)
	mailing.Post("/:id/start", mailingController.StartMailing)

	// Attempt ledger routes (read-only)
	attempt := api.Group("/attempts")
	attempt.Get("/", attemptController.GetAttempts)
	attempt.Get("/stats", attemptController.GetAttemptStats)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, mailer utils.Mailer, appLogger *logrus.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db, mailer)

	dispatcher := utils.NewDispatcher(db, mailer, config.AppConfig.FromEmail, appLogger)
	SetupAPIRoutes(app, db, dispatcher)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
