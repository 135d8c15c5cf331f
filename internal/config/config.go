package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	LISTEN_ADDR      string
	DB_HOST          string
	DB_PORT          string
	DB_USER          string
	DB_PASSWORD      string
	DB_NAME          string
	ES_URL           string
	ES_USER          string
	ES_PASSWORD      string
	ES_INDEX         string
	JWT_SECRET       string
	ADMIN_SIGNUP_KEY string
	ADMIN_EMAIL      string
	ADMIN_PASSWORD   string
	KAFKA_ADDRESS    string
	BLOB_DIR         string
	BLOB_BASE_URL    string
	LOG_LEVEL        string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		LISTEN_ADDR:      getenv("LISTEN_ADDR", ":8080"),
		DB_HOST:          os.Getenv("DB_HOST"),
		DB_PORT:          getenv("DB_PORT", "5432"),
		DB_USER:          os.Getenv("DB_USER"),
		DB_PASSWORD:      os.Getenv("DB_PASSWORD"),
		DB_NAME:          os.Getenv("DB_NAME"),
		ES_URL:           os.Getenv("ES_URL"),
		ES_USER:          os.Getenv("ES_USER"),
		ES_PASSWORD:      os.Getenv("ES_PASSWORD"),
		ES_INDEX:         getenv("ES_INDEX", "products"),
		JWT_SECRET:       os.Getenv("JWT_SECRET"),
		ADMIN_SIGNUP_KEY: os.Getenv("ADMIN_SIGNUP_KEY"),
		ADMIN_EMAIL:      os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD:   os.Getenv("ADMIN_PASSWORD"),
		KAFKA_ADDRESS:    os.Getenv("KAFKA_ADDRESS"),
		BLOB_DIR:         getenv("BLOB_DIR", "uploads"),
		BLOB_BASE_URL:    getenv("BLOB_BASE_URL", "http://localhost:8080/uploads"),
		LOG_LEVEL:        getenv("LOG_LEVEL", "info"),
	}

	if config.JWT_SECRET == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// InitDB opens the postgres database behind the key-value store. Callers fall
// back to the in-memory store when DB_HOST is unset.
func (c *Config) InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return db, nil
}
