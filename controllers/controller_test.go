package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mailery/config"
	"mailery/models"
)

type fakeMailer struct {
	failures map[string]string
	sent     []sentMail
}

type sentMail struct {
	From    string
	To      string
	Subject string
	Body    string
}

func (f *fakeMailer) Send(from, to, subject, body string) error {
	if msg, ok := f.failures[to]; ok {
		return errors.New(msg)
	}
	f.sent = append(f.sent, sentMail{From: from, To: to, Subject: subject, Body: body})
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	return db
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestAppLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// appFor builds a fiber app whose auth layer is replaced by a stub that
// injects the given user, so handlers can be exercised directly.
func appFor(user *models.User, register func(app *fiber.App)) *fiber.App {
	app := fiber.New()
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", user)
			return c.Next()
		})
	}
	register(app)
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createUser(t *testing.T, db *gorm.DB, email string, mutate ...func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "x", IsActive: true}
	for _, fn := range mutate {
		fn(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
