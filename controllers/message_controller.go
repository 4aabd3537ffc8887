package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailery/models"
	"mailery/utils"
)

type MessageController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMessageController(db *gorm.DB, logger *log.Logger) *MessageController {
	return &MessageController{
		DB:     db,
		Logger: logger,
	}
}

type MessageInput struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required,max=4000"`
}

func (mc *MessageController) CreateMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := utils.Evaluate(user, utils.ActionCreate, user.ID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input MessageInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	message := models.Message{
		Subject: input.Subject,
		Body:    input.Body,
		OwnerID: user.ID,
	}

	if err := mc.DB.Create(&message).Error; err != nil {
		mc.Logger.Printf("Failed to create message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create message",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

func (mc *MessageController) GetMessages(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var messages []models.Message
	if err := mc.DB.Scopes(utils.Scope(user)).Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch messages",
		})
	}

	return c.JSON(messages)
}

func (mc *MessageController) GetMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message ID",
		})
	}

	var message models.Message
	if err := mc.DB.First(&message, messageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionView, message.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(message)
}

func (mc *MessageController) UpdateMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message ID",
		})
	}

	var message models.Message
	if err := mc.DB.First(&message, messageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionUpdate, message.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input MessageInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	message.Subject = input.Subject
	message.Body = input.Body

	if err := mc.DB.Save(&message).Error; err != nil {
		mc.Logger.Printf("Failed to update message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update message",
		})
	}

	return c.JSON(message)
}

func (mc *MessageController) DeleteMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message ID",
		})
	}

	var message models.Message
	if err := mc.DB.First(&message, messageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionDelete, message.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Mailings cannot outlive their message: a mailing without content
	// would dispatch empty mail. Deleting a message takes its dependent
	// mailings, their recipient bindings and their attempt ledgers with it.
	var mailingIDs []uint
	if err := mc.DB.Model(&models.Mailing{}).
		Where("message_id = ?", message.ID).
		Pluck("id", &mailingIDs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete message",
		})
	}

	tx := mc.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if len(mailingIDs) > 0 {
		if err := tx.Where("mailing_id IN ?", mailingIDs).Delete(&models.MailingAttempt{}).Error; err != nil {
			tx.Rollback()
			mc.Logger.Printf("Failed to delete mailing attempts: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to delete message dependencies",
			})
		}

		if err := tx.Exec("DELETE FROM mailing_clients WHERE mailing_id IN ?", mailingIDs).Error; err != nil {
			tx.Rollback()
			mc.Logger.Printf("Failed to delete mailing client bindings: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to delete message dependencies",
			})
		}

		if err := tx.Where("id IN ?", mailingIDs).Delete(&models.Mailing{}).Error; err != nil {
			tx.Rollback()
			mc.Logger.Printf("Failed to delete dependent mailings: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to delete message dependencies",
			})
		}
	}

	if err := tx.Delete(&message).Error; err != nil {
		tx.Rollback()
		mc.Logger.Printf("Failed to delete message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete message",
		})
	}

	if err := tx.Commit().Error; err != nil {
		mc.Logger.Printf("Transaction commit failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to complete deletion",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Message deleted successfully",
	})
}
