package controller

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailery/models"
	"mailery/utils"
)

func messageRoutes(mc *MessageController) func(app *fiber.App) {
	return func(app *fiber.App) {
		app.Post("/messages", mc.CreateMessage)
		app.Get("/messages", mc.GetMessages)
		app.Get("/messages/:id", mc.GetMessage)
		app.Put("/messages/:id", mc.UpdateMessage)
		app.Delete("/messages/:id", mc.DeleteMessage)
	}
}

func TestCreateMessage(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	mc := NewMessageController(db, newTestLogger())
	app := appFor(owner, messageRoutes(mc))

	resp, err := app.Test(jsonRequest(t, "POST", "/messages", fiber.Map{
		"subject": "Launch",
		"body":    "We are live.",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var message models.Message
	decodeBody(t, resp, &message)
	assert.Equal(t, "Launch", message.Subject)
	assert.Equal(t, owner.ID, message.OwnerID)
}

func TestUpdateMessage(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")

	message := models.Message{Subject: "Draft", Body: "wip", OwnerID: owner.ID}
	require.NoError(t, db.Create(&message).Error)

	mc := NewMessageController(db, newTestLogger())
	target := fmt.Sprintf("/messages/%d", message.ID)

	resp, err := appFor(stranger, messageRoutes(mc)).Test(jsonRequest(t, "PUT", target, fiber.Map{
		"subject": "Hijacked",
		"body":    "x",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = appFor(owner, messageRoutes(mc)).Test(jsonRequest(t, "PUT", target, fiber.Map{
		"subject": "Final",
		"body":    "Ship it.",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.Message
	require.NoError(t, db.First(&reloaded, message.ID).Error)
	assert.Equal(t, "Final", reloaded.Subject)
	assert.Equal(t, "Ship it.", reloaded.Body)
}

// seedMailingForMessage binds the message to a fresh mailing with one
// recipient owned by the same account.
func seedMailingForMessage(t *testing.T, db *gorm.DB, message *models.Message, status string) *models.Mailing {
	t.Helper()

	client := models.Client{Email: fmt.Sprintf("r@%s", t.Name()), FullName: "R", OwnerID: message.OwnerID}
	require.NoError(t, db.Create(&client).Error)

	mailing := models.Mailing{
		Status:    status,
		MessageID: message.ID,
		Clients:   []models.Client{client},
		OwnerID:   message.OwnerID,
	}
	require.NoError(t, db.Create(&mailing).Error)
	return &mailing
}

func TestDeleteMessageCascadesToMailings(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")

	message := models.Message{Subject: "s", Body: "b", OwnerID: owner.ID}
	require.NoError(t, db.Create(&message).Error)
	mailing := seedMailingForMessage(t, db, &message, models.MailingStatusStarted)

	mailer := &fakeMailer{}
	dispatcher := utils.NewDispatcher(db, mailer, "noreply@mailery.io", newTestAppLogger())
	_, err := dispatcher.Dispatch(mailing.ID)
	require.NoError(t, err)

	mc := NewMessageController(db, newTestLogger())
	app := appFor(owner, messageRoutes(mc))

	resp, err := app.Test(jsonRequest(t, "DELETE", fmt.Sprintf("/messages/%d", message.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var mailings, attempts, bindings int64
	require.NoError(t, db.Model(&models.Mailing{}).Where("message_id = ?", message.ID).Count(&mailings).Error)
	require.NoError(t, db.Model(&models.MailingAttempt{}).Where("mailing_id = ?", mailing.ID).Count(&attempts).Error)
	require.NoError(t, db.Table("mailing_clients").Where("mailing_id = ?", mailing.ID).Count(&bindings).Error)
	assert.Zero(t, mailings)
	assert.Zero(t, attempts)
	assert.Zero(t, bindings)

	// Recipients are shared across mailings and survive.
	var clients int64
	require.NoError(t, db.Model(&models.Client{}).Count(&clients).Error)
	assert.Equal(t, int64(1), clients)
}

func TestDeleteMessagePreventsContentlessDispatch(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")

	message := models.Message{Subject: "s", Body: "b", OwnerID: owner.ID}
	require.NoError(t, db.Create(&message).Error)
	mailing := seedMailingForMessage(t, db, &message, models.MailingStatusStarted)

	mc := NewMessageController(db, newTestLogger())
	app := appFor(owner, messageRoutes(mc))

	resp, err := app.Test(jsonRequest(t, "DELETE", fmt.Sprintf("/messages/%d", message.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The mailing went with its message, so nothing is left to dispatch
	// and no empty mail can reach a recipient.
	mailer := &fakeMailer{}
	dispatcher := utils.NewDispatcher(db, mailer, "noreply@mailery.io", newTestAppLogger())
	count, err := dispatcher.Dispatch(mailing.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, count)
	assert.Empty(t, mailer.sent)
}
