package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/routes"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/scheduler"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

func main() {
	config.LoadEnv()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Tenant{},
		&models.Lease{},
		&models.Invoice{},
		&models.RecurringInvoiceTemplate{},
		&models.LateFeePolicy{},
	); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	scheduler.Start()

	r := gin.Default()
	routes.RegisterAPIRoutes(r)

	slog.Info("Starting server", "port", config.ServerPort)
	if err := r.Run(":" + config.ServerPort); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
