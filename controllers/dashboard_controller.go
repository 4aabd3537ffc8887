package controller

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailery/config"
	"mailery/models"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type DashboardStats struct {
	TotalMailings int64 `json:"total_mailings"`
	ActiveUsers   int64 `json:"active_users"`
	UniqueClients int64 `json:"unique_clients"`
}

const dashboardStatsKey = "dashboard:stats"
const dashboardStatsTTL = 60 * time.Second

// GetDashboardStats returns service-wide counts for the landing page.
// Results are cached in Redis for a minute when Redis is configured.
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	if config.Redis != nil {
		cached, err := config.Redis.Get(context.Background(), dashboardStatsKey).Bytes()
		if err == nil {
			var stats DashboardStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return c.JSON(stats)
			}
		}
	}

	var stats DashboardStats
	if err := dc.DB.Model(&models.Mailing{}).Count(&stats.TotalMailings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}
	if err := dc.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}
	if err := dc.DB.Model(&models.Client{}).Distinct("email").Count(&stats.UniqueClients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	if config.Redis != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := config.Redis.Set(context.Background(), dashboardStatsKey, payload, dashboardStatsTTL).Err(); err != nil {
				dc.Logger.Printf("Failed to cache dashboard stats: %v", err)
			}
		}
	}

	return c.JSON(stats)
}
