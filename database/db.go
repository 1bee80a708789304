package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mandap-backend/config"
)

var DB *gorm.DB

// Connect opens the shared Postgres connection from env configuration.
// A missing .env file is fine when the variables come from the environment.
func Connect() {
	if err := godotenv.Load(); err != nil {
		config.GetLogger().Debug("no .env file, using process environment")
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), port)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		config.GetLogger().WithError(err).Fatal("could not connect to database")
	}
}
