package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Eval backend
	LangLangURL    string
	BackendTimeout time.Duration

	// Admission
	MaxConcurrency int
	StaleAfter     time.Duration

	// Presentation
	MaxResultLength int
	WaitNoticeTTL   time.Duration

	// Transports
	NatsURL  string
	HTTPAddr string

	Environment string
	Warmup      bool
	AuditLog    string

	BetterStackUploadURL   string
	BetterStackSourceToken string
}

func LoadConfig() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	return Config{
		LangLangURL:    getEnv("LANGLANG_URL", "http://localhost:5000/langlang/eval"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 60*time.Second),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),
		StaleAfter:     getEnvDuration("STALE_AFTER", 190*time.Second),

		MaxResultLength: getEnvInt("MAX_RESULT_LENGTH", 2000),
		WaitNoticeTTL:   getEnvDuration("WAIT_NOTICE_TTL", 5*time.Second),

		NatsURL:  getEnv("NATSURL", "nats://localhost:4222"),
		HTTPAddr: getEnv("HTTP_ADDR", ""),

		Environment: getEnv("ENVIRONMENT", "production"),
		Warmup:      getEnvBool("WARMUP", false),
		AuditLog:    getEnv("AUDIT_LOG", "app.log"),

		BetterStackUploadURL:   getEnv("BETTERSTACKUPLOADURL", ""),
		BetterStackSourceToken: getEnv("BETTERSTACKSOURCETOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("190s") or plain seconds ("190").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
