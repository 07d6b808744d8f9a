package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string
	Env  string

	// Mapping registry (local SQLite store)
	RegistryDBPath string

	// Remote collaborators
	CatalogURL   string
	LedgerURL    string
	LedgerAPIKey string
	HTTPTimeout  time.Duration
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		RegistryDBPath: getEnv("REGISTRY_DB_PATH", "brokersync.db"),
		CatalogURL:     getEnv("CATALOG_URL", "http://localhost:9000/catalog/tickers.json"),
		LedgerURL:      getEnv("LEDGER_URL", "http://localhost:9100"),
		LedgerAPIKey:   getEnv("LEDGER_API_KEY", ""),
	}

	timeoutStr := getEnv("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Printf("Warning: invalid HTTP_TIMEOUT value '%s', falling back to 15s\n", timeoutStr)
		timeout = 15 * time.Second
	}
	config.HTTPTimeout = timeout

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
