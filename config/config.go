package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full environment surface of the server binary. Stores are
// optional: an empty URI disables that store and the dependent features
// degrade to in-memory behavior.
type Config struct {
	Port          string
	PublicBaseURL string // base URL handed to the telephony webhook (http(s)://host[:port])

	PostgresURI string
	RedisAddr   string
	MongoURI    string
	MongoDB     string

	GCPProjectID string
	GCPLocation  string
	RiskModel    string

	STTProvider string // "mock" | "google"

	AnalysisCacheTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:          getEnv("PORT", "3001"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3001"),

		PostgresURI: os.Getenv("POSTGRES_URI"),
		RedisAddr:   firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getEnv("MONGO_DB", "coachline"),

		GCPProjectID: os.Getenv("GCP_PROJECT_ID"),
		GCPLocation:  getEnv("GCP_LOCATION", "us-central1"),
		RiskModel:    getEnv("RISK_MODEL", "gemini-1.5-flash"),

		STTProvider: getEnv("STT_PROVIDER", "mock"),

		AnalysisCacheTTL: 30 * time.Second,
	}

	if v := os.Getenv("ANALYSIS_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AnalysisCacheTTL = time.Duration(n) * time.Second
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
