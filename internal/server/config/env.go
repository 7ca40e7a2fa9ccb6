package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotenvFile is read, when present, before the environment is parsed.
// Variables already set in the environment win over the file.
var dotenvFile = ".env"

// parseEnv overlays GOPHAUTH_* environment variables onto config. Unset
// variables leave the current value untouched. A malformed value panics,
// like a malformed JSON file or flag.
func parseEnv(config *Config) {
	// a missing .env is fine
	_ = godotenv.Load(dotenvFile)

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
