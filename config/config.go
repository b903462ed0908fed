package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Environment  string
	FrontendURL  string

	JWTSecret string

	SendgridAPIKey string
	MailFrom       string
	MailFromName   string

	CloudinaryURL    string
	CloudinaryFolder string

	RedisAddress  string
	RedisPassword string
	StatsCacheTTL time.Duration
	// StatsRefreshSchedule is the cron spec the stats cache is rebuilt on
	StatsRefreshSchedule string

	// ReportTimezone is the IANA zone analytics buckets days in.
	ReportTimezone string

	NotificationQueueSize int
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "local")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:                   os.Getenv("DB_URI"),
		DatabaseName:          getEnv("DB_NAME", "urban-issues"),
		BaseURL:               os.Getenv("BASE_URL"),
		Port:                  getEnv("PORT", "8080"),
		Environment:           env,
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		SendgridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
		MailFrom:              getEnv("MAIL_FROM", "no-reply@urban-issue-reporter.com"),
		MailFromName:          getEnv("MAIL_FROM_NAME", "Urban Issue Reporter"),
		CloudinaryURL:         os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder:      getEnv("CLOUDINARY_FOLDER", "urban-issues"),
		RedisAddress:          os.Getenv("REDIS_ADDRESS"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		StatsCacheTTL:         getDuration("STATS_CACHE_TTL", time.Minute),
		StatsRefreshSchedule:  getEnv("STATS_REFRESH_SCHEDULE", "@every 1m"),
		ReportTimezone:        getEnv("REPORT_TIMEZONE", "UTC"),
		NotificationQueueSize: getInt("NOTIFICATION_QUEUE_SIZE", 256),
	}
}

// IsProduction reports whether the service runs with production settings
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		zap.S().Warnw("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		zap.S().Warnw("invalid duration in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err. The error itself is only logged, never written.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(zap.Error(err)).Error(message)
	WriteError(w, httpStatusCode, models.ErrorResponse{Success: false, Message: message})
}

// WriteError writes a failure envelope with the given status code
func WriteError(w http.ResponseWriter, httpStatusCode int, resp models.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(resp)
	_, _ = w.Write(b)
}
