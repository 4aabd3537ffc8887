package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailery/models"
)

// Dispatcher runs the send loop for a mailing: it transitions timestamps
// and status on the mailing and appends one MailingAttempt per recipient.
type Dispatcher struct {
	DB     *gorm.DB
	Mailer Mailer
	From   string
	Logger *logrus.Logger
}

func NewDispatcher(db *gorm.DB, mailer Mailer, from string, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		DB:     db,
		Mailer: mailer,
		From:   from,
		Logger: logger,
	}
}

// Dispatch sends the mailing's message to every bound client and returns
// the number of successful sends.
//
// The mailing must already be in started status; anything else (including
// an already-completed mailing) is a no-op returning 0. The guard is a
// status check only: resetting a completed mailing back to started makes
// it dispatch again, appending fresh ledger rows.
//
// There is no transaction spanning the loop. Each attempt row and each
// status write commits on its own, so a crash mid-loop leaves the mailing
// in started status with a partial ledger.
func (d *Dispatcher) Dispatch(mailingID uint) (int, error) {
	var mailing models.Mailing
	if err := d.DB.Preload("Message").Preload("Clients").First(&mailing, mailingID).Error; err != nil {
		return 0, err
	}

	if mailing.Status != models.MailingStatusStarted {
		d.Logger.WithFields(logrus.Fields{
			"mailing_id": mailing.ID,
			"status":     mailing.Status,
		}).Warn("dispatch skipped: mailing is not started")
		return 0, nil
	}

	start := time.Now()
	if err := d.DB.Model(&mailing).Update("start_time", start).Error; err != nil {
		return 0, err
	}

	successful := 0
	for _, client := range mailing.Clients {
		attempt := models.MailingAttempt{
			MailingID:   mailing.ID,
			Recipient:   client.Email,
			AttemptTime: time.Now(),
		}

		if err := d.Mailer.Send(d.From, client.Email, mailing.Message.Subject, mailing.Message.Body); err != nil {
			attempt.Status = models.AttemptStatusFailure
			attempt.ServerResponse = err.Error()
			sentry.CaptureException(err)
			d.Logger.WithFields(logrus.Fields{
				"mailing_id": mailing.ID,
				"recipient":  client.Email,
			}).WithError(err).Error("send failed")
		} else {
			attempt.Status = models.AttemptStatusSuccess
			attempt.ServerResponse = "sent successfully"
			successful++
		}

		if err := d.DB.Create(&attempt).Error; err != nil {
			d.Logger.WithFields(logrus.Fields{
				"mailing_id": mailing.ID,
				"recipient":  client.Email,
			}).WithError(err).Error("failed to record attempt")
		}
	}

	end := time.Now()
	if err := d.DB.Model(&mailing).Updates(map[string]interface{}{
		"status":   models.MailingStatusCompleted,
		"end_time": end,
	}).Error; err != nil {
		return successful, err
	}

	d.Logger.WithFields(logrus.Fields{
		"mailing_id": mailing.ID,
		"recipients": len(mailing.Clients),
		"successful": successful,
	}).Info("mailing dispatched")

	return successful, nil
}
