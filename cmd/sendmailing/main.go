// Command sendmailing triggers a mailing from the command line: it forces
// the mailing into started status and runs the dispatch loop, the same
// path the interactive trigger uses.
package main

import (
	"errors"
	"flag"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailery/config"
	"mailery/models"
	"mailery/utils"
)

func main() {
	mailingID := flag.Uint("mailing-id", 0, "ID of the mailing to dispatch")
	flag.Parse()

	logger := logrus.New()

	if *mailingID == 0 {
		logger.Fatal("--mailing-id is required")
	}

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	var mailing models.Mailing
	if err := config.DB.First(&mailing, *mailingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Fatalf("Mailing with ID %d does not exist", *mailingID)
		}
		logger.Fatalf("Failed to load mailing: %v", err)
	}

	if err := config.DB.Model(&mailing).Update("status", models.MailingStatusStarted).Error; err != nil {
		logger.Fatalf("Failed to start mailing: %v", err)
	}

	mailer := utils.NewSMTPMailer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)
	dispatcher := utils.NewDispatcher(config.DB, mailer, config.AppConfig.FromEmail, logger)

	successful, err := dispatcher.Dispatch(mailing.ID)
	if err != nil {
		logger.Fatalf("Dispatch failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"mailing_id": mailing.ID,
		"successful": successful,
	}).Info("mailing dispatched")
}
