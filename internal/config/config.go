package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	JWTSecret    string
	PushEndpoint string
	PushToken    string
	CORSOrigin   string
}

func Load() *Config {
	// Optional .env for local development.
	_ = godotenv.Load()

	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "djassa"),
		DBPassword:   getEnv("DB_PASSWORD", "djassa_dev_password"),
		DBName:       getEnv("DB_NAME", "djassa"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		PushEndpoint: getEnv("PUSH_ENDPOINT", ""),
		PushToken:    getEnv("PUSH_TOKEN", ""),
		CORSOrigin:   getEnv("CORS_ORIGIN", "*"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
