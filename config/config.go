package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	JWTSecret           string
	DBPath              string
	TokenExpiryDuration string

	// Salary policy bounds, applied after currency conversion.
	MinSalaryEuros    float64
	MaxSalaryEuros    float64
	MaxCommission     float64
	DefaultCommission float64

	// HistoryOnCreate writes a ledger entry for the very first salary
	// record of a user, with zero old values.
	HistoryOnCreate bool
	// BulkSingleTx runs a bulk update as one transaction instead of one
	// transaction per item.
	BulkSingleTx bool
}

var (
	AppConfig Config
)

func LoadConfig() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	AppConfig = Config{
		Port:                getEnvOrDefault("PORT", "3000"),
		JWTSecret:           mustGetEnv("JWT_SECRET"),
		DBPath:              getEnvOrDefault("DB_PATH", "salaries.db"),
		TokenExpiryDuration: getEnvOrDefault("TOKEN_EXPIRY", "24h"),
		MinSalaryEuros:      getEnvFloat("MIN_SALARY_EUROS", 1000),
		MaxSalaryEuros:      getEnvFloat("MAX_SALARY_EUROS", 500000),
		MaxCommission:       getEnvFloat("MAX_COMMISSION", 50000),
		DefaultCommission:   getEnvFloat("DEFAULT_COMMISSION", 500),
		HistoryOnCreate:     getEnvBool("HISTORY_ON_CREATE", false),
		BulkSingleTx:        getEnvBool("BULK_SINGLE_TX", false),
	}
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required", key)
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("Environment variable %s must be a number, got %q", key, value)
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("Environment variable %s must be a boolean, got %q", key, value)
	}
	return parsed
}
