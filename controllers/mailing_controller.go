package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailery/models"
	"mailery/utils"
)

type MailingController struct {
	DB         *gorm.DB
	Dispatcher *utils.Dispatcher
	Logger     *log.Logger
}

func NewMailingController(db *gorm.DB, dispatcher *utils.Dispatcher, logger *log.Logger) *MailingController {
	return &MailingController{
		DB:         db,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
}

type MailingInput struct {
	MessageID uint   `json:"message_id" validate:"required"`
	ClientIDs []uint `json:"client_ids" validate:"required,min=1"`
}

// resolveOwned loads the message and clients for a mailing, restricted to
// rows the owner actually owns. Cross-account references come back as
// not-found rather than a separate rejection.
func (mc *MailingController) resolveOwned(ownerID uint, input MailingInput) (*models.Message, []models.Client, error) {
	var message models.Message
	if err := mc.DB.Where("id = ? AND owner_id = ?", input.MessageID, ownerID).First(&message).Error; err != nil {
		return nil, nil, err
	}

	var clients []models.Client
	if err := mc.DB.Where("id IN ? AND owner_id = ?", input.ClientIDs, ownerID).Find(&clients).Error; err != nil {
		return nil, nil, err
	}
	if len(clients) != len(input.ClientIDs) {
		return nil, nil, gorm.ErrRecordNotFound
	}

	return &message, clients, nil
}

func (mc *MailingController) CreateMailing(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := utils.Evaluate(user, utils.ActionCreate, user.ID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input MailingInput
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

	message, clients, err := mc.resolveOwned(user.ID, input)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message or clients not found",
		})
	}

	mailing := models.Mailing{
		Status:    models.MailingStatusCreated,
		MessageID: message.ID,
		Clients:   clients,
		OwnerID:   user.ID,
	}

	if err := mc.DB.Create(&mailing).Error; err != nil {
		mc.Logger.Printf("Failed to create mailing: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create mailing",
		})
	}

	mailing.Message = *message
	return c.Status(fiber.StatusCreated).JSON(mailing)
}

func (mc *MailingController) GetMailings(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var mailings []models.Mailing
	if err := mc.DB.Scopes(utils.Scope(user)).
		Preload("Message").
		Preload("Clients").
		Find(&mailings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch mailings",
		})
	}

	return c.JSON(mailings)
}

func (mc *MailingController) GetMailing(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	mailingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid mailing ID",
		})
	}

	var mailing models.Mailing
	if err := mc.DB.Preload("Message").Preload("Clients").Preload("Attempts").
		First(&mailing, mailingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailing not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionView, mailing.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(mailing)
}

// UpdateMailing rebinds the mailing's message and recipient set. The
// lifecycle status is never writable from the outside; it only moves
// through the dispatch path.
func (mc *MailingController) UpdateMailing(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	mailingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid mailing ID",
		})
	}

	var mailing models.Mailing
	if err := mc.DB.First(&mailing, mailingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailing not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionUpdate, mailing.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input MailingInput
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

	message, clients, err := mc.resolveOwned(mailing.OwnerID, input)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message or clients not found",
		})
	}

	mailing.MessageID = message.ID
	if err := mc.DB.Save(&mailing).Error; err != nil {
		mc.Logger.Printf("Failed to update mailing: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update mailing",
		})
	}

	if err := mc.DB.Model(&mailing).Association("Clients").Replace(clients); err != nil {
		mc.Logger.Printf("Failed to update mailing clients: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update mailing",
		})
	}

	mailing.Message = *message
	mailing.Clients = clients
	return c.JSON(mailing)
}

func (mc *MailingController) DeleteMailing(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	mailingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid mailing ID",
		})
	}

	var mailing models.Mailing
	if err := mc.DB.First(&mailing, mailingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailing not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionDelete, mailing.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Deleting a mailing cascades to its attempt ledger and recipient
	// bindings; clients and the message survive.
	tx := mc.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("mailing_id = ?", mailing.ID).Delete(&models.MailingAttempt{}).Error; err != nil {
		tx.Rollback()
		mc.Logger.Printf("Failed to delete mailing attempts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete mailing dependencies",
		})
	}

	if err := tx.Exec("DELETE FROM mailing_clients WHERE mailing_id = ?", mailing.ID).Error; err != nil {
		tx.Rollback()
		mc.Logger.Printf("Failed to delete mailing client bindings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete mailing dependencies",
		})
	}

	if err := tx.Delete(&mailing).Error; err != nil {
		tx.Rollback()
		mc.Logger.Printf("Failed to delete mailing: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete mailing",
		})
	}

	if err := tx.Commit().Error; err != nil {
		mc.Logger.Printf("Transaction commit failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to complete deletion",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mailing deleted successfully",
	})
}

// StartMailing is the interactive dispatch trigger: it moves a freshly
// created mailing to started and runs the send loop synchronously.
func (mc *MailingController) StartMailing(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	mailingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid mailing ID",
		})
	}

	var mailing models.Mailing
	if err := mc.DB.First(&mailing, mailingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailing not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionDispatch, mailing.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if mailing.Status == models.MailingStatusCreated {
		if err := mc.DB.Model(&mailing).Update("status", models.MailingStatusStarted).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to start mailing",
			})
		}
	}

	successful, err := mc.Dispatcher.Dispatch(mailing.ID)
	if err != nil {
		mc.Logger.Printf("Dispatch failed for mailing %d: %v", mailing.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to dispatch mailing",
		})
	}

	return c.JSON(fiber.Map{
		"message":          "Mailing dispatched",
		"successful_sends": successful,
	})
}
