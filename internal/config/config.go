package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GeminiAPIKey string
	ModelName    string

	StoreBackend string // "memory" or "firestore"
	UseMockBot   bool   // true = canned bot replies even with an API key

	// AlertWindowMillis bounds how old an inbound message may be and
	// still trigger the alert sound; older ones are treated as history
	// backfill and delivered silently.
	AlertWindowMillis int64

	// Feed query limits, mirroring the remote store's bounded queries.
	UserLimit    int
	ContactLimit int
	MessageLimit int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// Load reads all env vars and builds the config. A .env file in the
// working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	modeStr := getEnv("RETROICQ_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("RETROICQ_PORT", "8080"),

		GCPProjectID: getEnv("RETROICQ_GCP_PROJECT", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("RETROICQ_MODEL_NAME", "gemini-2.5-flash"),

		StoreBackend: getEnv("RETROICQ_STORE_BACKEND", "memory"),
		UseMockBot:   getBoolEnv("RETROICQ_USE_MOCK_BOT", mode == ModeLocal),

		AlertWindowMillis: getIntEnv("RETROICQ_ALERT_WINDOW_MS", 2000),

		UserLimit:    int(getIntEnv("RETROICQ_USER_LIMIT", 50)),
		ContactLimit: int(getIntEnv("RETROICQ_CONTACT_LIMIT", 100)),
		MessageLimit: int(getIntEnv("RETROICQ_MESSAGE_LIMIT", 100)),
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.StoreBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("RETROICQ_GCP_PROJECT must be set for the firestore backend")
	}

	return cfg
}
