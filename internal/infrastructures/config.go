package infrastructures

import (
	"os"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DATABASE_URL        string
	REDIS_ADDRESS       string
	REDIS_PASSWORD      string
	DATA_SIGNING_SECRET string
	PORT                string
}

var Config *AppConfig

func LoadConfig() *AppConfig {
	godotenv.Load()

	Config = &AppConfig{
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		REDIS_ADDRESS:       os.Getenv("REDIS_ADDRESS"),
		REDIS_PASSWORD:      os.Getenv("REDIS_PASSWORD"),
		DATA_SIGNING_SECRET: getEnv("DATA_SIGNING_SECRET", "default-signing-secret"),
		PORT:                getEnv("PORT", "8080"),
	}

	return Config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
