package config

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/models"
)

// Store drivers understood by STORE_DRIVER
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds the project config values
type Config struct {
	Env            string
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	StoreDriver    string
	SQLitePath     string
	JWTSecret      string
	GeminiAPIKey   string
	GeminiModel    string
	SendgridAPIKey string
	NotifyEmail    string
	ReminderSpec   string
	RequestTimeout time.Duration
	SeedDemoCases  bool
}

// New sets up all config related services
func New() *Config {
	env := getEnv("ENV", "local")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		zap.S().Warnw("invalid REQUEST_TIMEOUT, using default", "error", err)
		timeout = 30 * time.Second
	}

	return &Config{
		Env:            env,
		URL:            os.Getenv("DB_URI"),
		DatabaseName:   getEnv("DB_NAME", "dharma"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           getEnv("PORT", "8080"),
		StoreDriver:    getEnv("STORE_DRIVER", DriverMemory),
		SQLitePath:     getEnv("SQLITE_PATH", "dharma.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		NotifyEmail:    os.Getenv("NOTIFY_EMAIL"),
		ReminderSpec:   getEnv("HEARING_REMINDER_SCHEDULE", "0 7 * * *"),
		RequestTimeout: timeout,
		SeedDemoCases:  os.Getenv("SEED_DEMO_CASES") != "false",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	zap.S().Errorw(message, "status", httpStatusCode, "error", errText)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: errText},
	})
	_, _ = w.Write(b)
}
