package utils

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mailery/config"
	"mailery/models"
)

// fakeMailer scripts per-recipient outcomes so tests can exercise partial
// failure without a real SMTP server.
type fakeMailer struct {
	failures map[string]string
	sent     []string
}

func (f *fakeMailer) Send(from, to, subject, body string) error {
	if msg, ok := f.failures[to]; ok {
		return errors.New(msg)
	}
	f.sent = append(f.sent, to)
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

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seedMailing(t *testing.T, db *gorm.DB, status string, emails ...string) *models.Mailing {
	t.Helper()

	owner := models.User{Email: fmt.Sprintf("%s-owner@example.com", t.Name()), PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&owner).Error)

	message := models.Message{Subject: "Hi", Body: "Hello", OwnerID: owner.ID}
	require.NoError(t, db.Create(&message).Error)

	clients := make([]models.Client, 0, len(emails))
	for _, email := range emails {
		clients = append(clients, models.Client{Email: email, FullName: "Client " + email, OwnerID: owner.ID})
	}

	mailing := models.Mailing{
		Status:    status,
		MessageID: message.ID,
		Clients:   clients,
		OwnerID:   owner.ID,
	}
	require.NoError(t, db.Create(&mailing).Error)
	return &mailing
}

func attemptsFor(t *testing.T, db *gorm.DB, mailingID uint) []models.MailingAttempt {
	t.Helper()

	var attempts []models.MailingAttempt
	require.NoError(t, db.Where("mailing_id = ?", mailingID).Order("id").Find(&attempts).Error)
	return attempts
}

func TestDispatchMissingMailing(t *testing.T) {
	db := newTestDB(t)
	d := NewDispatcher(db, &fakeMailer{}, "noreply@mailery.io", newTestLogger())

	count, err := d.Dispatch(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, count)
}

func TestDispatchRequiresStartedStatus(t *testing.T) {
	for _, status := range []string{models.MailingStatusCreated, models.MailingStatusCompleted} {
		t.Run(status, func(t *testing.T) {
			db := newTestDB(t)
			mailer := &fakeMailer{}
			d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

			mailing := seedMailing(t, db, status, "a@x.com", "b@x.com")

			count, err := d.Dispatch(mailing.ID)
			require.NoError(t, err)
			assert.Zero(t, count)
			assert.Empty(t, mailer.sent)
			assert.Empty(t, attemptsFor(t, db, mailing.ID))

			var reloaded models.Mailing
			require.NoError(t, db.First(&reloaded, mailing.ID).Error)
			assert.Equal(t, status, reloaded.Status)
			assert.Nil(t, reloaded.StartTime)
			assert.Nil(t, reloaded.EndTime)
		})
	}
}

func TestDispatchSendsToAllRecipients(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com", "b@x.com", "c@x.com")

	count, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	attempts := attemptsFor(t, db, mailing.ID)
	require.Len(t, attempts, 3)
	for _, attempt := range attempts {
		assert.Equal(t, models.AttemptStatusSuccess, attempt.Status)
		assert.Equal(t, "sent successfully", attempt.ServerResponse)
	}

	var reloaded models.Mailing
	require.NoError(t, db.First(&reloaded, mailing.ID).Error)
	assert.Equal(t, models.MailingStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.StartTime)
	require.NotNil(t, reloaded.EndTime)
	assert.False(t, reloaded.EndTime.Before(*reloaded.StartTime))
}

func TestDispatchPartialFailureContinues(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{failures: map[string]string{"b@x.com": "mailbox full"}}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com", "b@x.com")

	count, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	attempts := attemptsFor(t, db, mailing.ID)
	require.Len(t, attempts, 2)

	byRecipient := make(map[string]models.MailingAttempt, len(attempts))
	for _, attempt := range attempts {
		byRecipient[attempt.Recipient] = attempt
	}
	assert.Equal(t, models.AttemptStatusSuccess, byRecipient["a@x.com"].Status)
	assert.Equal(t, models.AttemptStatusFailure, byRecipient["b@x.com"].Status)
	assert.Equal(t, "mailbox full", byRecipient["b@x.com"].ServerResponse)

	var reloaded models.Mailing
	require.NoError(t, db.First(&reloaded, mailing.ID).Error)
	assert.Equal(t, models.MailingStatusCompleted, reloaded.Status)
}

func TestDispatchSuccessCountMatchesLedger(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{failures: map[string]string{
		"b@x.com": "mailbox full",
		"d@x.com": "connection refused",
	}}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com", "b@x.com", "c@x.com", "d@x.com")

	count, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)

	var successful int64
	require.NoError(t, db.Model(&models.MailingAttempt{}).
		Where("mailing_id = ? AND status = ?", mailing.ID, models.AttemptStatusSuccess).
		Count(&successful).Error)
	assert.Equal(t, int64(count), successful)
}

func TestRedispatchCompletedIsNoOp(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com")

	count, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = d.Dispatch(mailing.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, attemptsFor(t, db, mailing.ID), 1)
}

func TestRedispatchAfterStatusResetAppendsRows(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com", "b@x.com")

	_, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)

	// Forcing the status back to started re-opens the dispatch path; the
	// ledger is append-only so the first generation's rows survive.
	require.NoError(t, db.Model(&models.Mailing{}).
		Where("id = ?", mailing.ID).
		Update("status", models.MailingStatusStarted).Error)

	count, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, attemptsFor(t, db, mailing.ID), 4)
}

func TestDispatchSnapshotsRecipientEmail(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	d := NewDispatcher(db, mailer, "noreply@mailery.io", newTestLogger())

	mailing := seedMailing(t, db, models.MailingStatusStarted, "a@x.com")

	_, err := d.Dispatch(mailing.ID)
	require.NoError(t, err)

	// Editing the client afterwards must not rewrite ledger history.
	require.NoError(t, db.Model(&models.Client{}).
		Where("email = ?", "a@x.com").
		Update("email", "renamed@x.com").Error)

	attempts := attemptsFor(t, db, mailing.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, "a@x.com", attempts[0].Recipient)
	assert.WithinDuration(t, time.Now(), attempts[0].AttemptTime, time.Minute)
}
