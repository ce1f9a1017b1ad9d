package config

import (
	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env/.env.local into the process environment so
// ${VAR} references in config.yaml resolve. Existing environment variables
// win; a missing file is not an error.
func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		// godotenv.Load never overrides variables already set.
		_ = godotenv.Load(path)
	}
}
