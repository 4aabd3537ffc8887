package controller

import (
	"errors"
	"log"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailery/models"
	"mailery/utils"
)

type ClientController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewClientController(db *gorm.DB, logger *log.Logger) *ClientController {
	return &ClientController{
		DB:     db,
		Logger: logger,
	}
}

type ClientInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Comment  string `json:"comment" validate:"omitempty,max=3000"`
}

func (cc *ClientController) CreateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := utils.Evaluate(user, utils.ActionCreate, user.ID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input ClientInput
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

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email must be a valid email",
			"field": "email",
		})
	}

	// Client emails are unique system-wide; reject before insert so the
	// caller gets a field-level error instead of a constraint violation.
	var existing models.Client
	if err := cc.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A client with this email already exists",
			"field": "email",
		})
	}

	client := models.Client{
		Email:    input.Email,
		FullName: input.FullName,
		Comment:  input.Comment,
		OwnerID:  user.ID,
	}

	if err := cc.DB.Create(&client).Error; err != nil {
		cc.Logger.Printf("Failed to create client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create client",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(client)
}

func (cc *ClientController) GetClients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var clients []models.Client
	if err := cc.DB.Scopes(utils.Scope(user)).Find(&clients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch clients",
		})
	}

	return c.JSON(clients)
}

func (cc *ClientController) GetClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client ID",
		})
	}

	var client models.Client
	if err := cc.DB.First(&client, clientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionView, client.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(client)
}

func (cc *ClientController) UpdateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client ID",
		})
	}

	var client models.Client
	if err := cc.DB.First(&client, clientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionUpdate, client.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var input ClientInput
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

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email must be a valid email",
			"field": "email",
		})
	}

	if input.Email != client.Email {
		var existing models.Client
		if err := cc.DB.Where("email = ? AND id <> ?", input.Email, client.ID).First(&existing).Error; err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A client with this email already exists",
				"field": "email",
			})
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update client",
			})
		}
	}

	client.Email = input.Email
	client.FullName = input.FullName
	client.Comment = input.Comment

	if err := cc.DB.Save(&client).Error; err != nil {
		cc.Logger.Printf("Failed to update client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update client",
		})
	}

	return c.JSON(client)
}

func (cc *ClientController) DeleteClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client ID",
		})
	}

	var client models.Client
	if err := cc.DB.First(&client, clientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	if err := utils.Evaluate(user, utils.ActionDelete, client.OwnerID); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Drop the client from any mailing's recipient set before removing
	// the row itself.
	if err := cc.DB.Exec("DELETE FROM mailing_clients WHERE client_id = ?", client.ID).Error; err != nil {
		cc.Logger.Printf("Failed to detach client from mailings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete client",
		})
	}

	if err := cc.DB.Delete(&client).Error; err != nil {
		cc.Logger.Printf("Failed to delete client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete client",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Client deleted successfully",
	})
}
