package main

import (
	"CasinoApi/cmd/db"
	"CasinoApi/internal/app"
	"CasinoApi/internal/models"
	"CasinoApi/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded: %v", err)
	}

	if err := db.Init(); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	if err := models.Migrate(nil); err != nil {
		logger.Fatal("Failed to migrate database: %v", err)
	}

	app.Start()
}
