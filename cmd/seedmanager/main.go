// Command seedmanager creates (or updates) an account with the manager
// role: active, cross-owner read access, no mutations.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mailery/config"
	"mailery/models"
)

func main() {
	email := flag.String("email", "manager@example.com", "email for the manager account")
	password := flag.String("password", "", "password for the manager account")
	flag.Parse()

	logger := logrus.New()

	if *password == "" {
		logger.Fatal("--password is required")
	}

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatalf("Failed to hash password: %v", err)
	}

	var user models.User
	err = config.DB.Where("email = ?", *email).First(&user).Error
	switch {
	case err == nil:
		user.PasswordHash = string(hashed)
		user.IsActive = true
		user.IsManager = true
		if err := config.DB.Save(&user).Error; err != nil {
			logger.Fatalf("Failed to update manager account: %v", err)
		}
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			Email:        *email,
			PasswordHash: string(hashed),
			IsActive:     true,
			IsManager:    true,
		}
		if err := config.DB.Create(&user).Error; err != nil {
			logger.Fatalf("Failed to create manager account: %v", err)
		}
	default:
		logger.Fatalf("Failed to look up account: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("manager account ready")
}
