package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailery/models"
)

type AttemptController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAttemptController(db *gorm.DB, logger *log.Logger) *AttemptController {
	return &AttemptController{
		DB:     db,
		Logger: logger,
	}
}

// scoped joins attempts to their owning mailing and applies the implicit
// ownership filter: managers and admins see every owner's ledger,
// everyone else only attempts of their own mailings.
func (ac *AttemptController) scoped(user *models.User) *gorm.DB {
	q := ac.DB.Model(&models.MailingAttempt{}).
		Joins("JOIN mailings ON mailings.id = mailing_attempts.mailing_id")
	if user.IsManager || user.IsAdmin {
		return q
	}
	return q.Where("mailings.owner_id = ?", user.ID)
}

// GetAttempts returns the attempt ledger, newest first, paginated.
func (ac *AttemptController) GetAttempts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := ac.scoped(user).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count attempts",
		})
	}

	var attempts []models.MailingAttempt
	if err := ac.scoped(user).
		Preload("Mailing").
		Order("mailing_attempts.attempt_time DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&attempts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch attempts",
		})
	}

	return c.JSON(fiber.Map{
		"attempts": attempts,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetAttemptStats returns aggregate counts over the visible ledger.
func (ac *AttemptController) GetAttemptStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var total, successful, failed int64
	if err := ac.scoped(user).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count attempts",
		})
	}
	if err := ac.scoped(user).
		Where("mailing_attempts.status = ?", models.AttemptStatusSuccess).
		Count(&successful).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count attempts",
		})
	}
	if err := ac.scoped(user).
		Where("mailing_attempts.status = ?", models.AttemptStatusFailure).
		Count(&failed).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count attempts",
		})
	}

	return c.JSON(fiber.Map{
		"total_attempts":      total,
		"successful_attempts": successful,
		"failed_attempts":     failed,
	})
}
