package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SyncQueueName       string
	SyncLockPrefix      string
	SyncLockTTLSeconds  int
	SyncMaxAttempts     int
	SyncRetryDelaySecs  int
	SyncSubmissionLimit int
	SyncWorkerInProcess bool

	LeetCodeGraphQLURL string
	CodeforcesAPIURL   string
	LeetCodeRPS        float64
	CodeforcesRPS      float64
	HTTPClientTimeout  time.Duration

	CalendarStaleAfter time.Duration
	DashboardCacheTTL  time.Duration

	AIBaseURL      string
	AIAPIKey       string
	AIModel        string
	ChatHistoryLen int

	LogLevel string
	LogFile  string

	TracingEnabled  bool
	TracingEndpoint string

	CORSAllowedOrigins []string
}

var AppConfig *Config

func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromViper(newViper())
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("JWT_SECRET", "defaultsecret")
	v.SetDefault("JWT_EXPIRATION_HOURS", 72)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "cpdash")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SYNC_QUEUE_NAME", "sync_jobs_queue")
	v.SetDefault("SYNC_LOCK_PREFIX", "sync_lock:")
	v.SetDefault("SYNC_LOCK_TTL_SECONDS", 300)
	v.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	v.SetDefault("SYNC_RETRY_DELAY_SECONDS", 10)
	v.SetDefault("SYNC_SUBMISSION_LIMIT", 1000)
	v.SetDefault("SYNC_WORKER_IN_PROCESS", true)
	v.SetDefault("LEETCODE_GRAPHQL_URL", "https://leetcode.com/graphql")
	v.SetDefault("CODEFORCES_API_URL", "https://codeforces.com/api")
	v.SetDefault("LEETCODE_RPS", 2.0)
	v.SetDefault("CODEFORCES_RPS", 0.5)
	v.SetDefault("HTTP_CLIENT_TIMEOUT_SECONDS", 15)
	v.SetDefault("CALENDAR_STALE_HOURS", 24)
	v.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 300)
	v.SetDefault("AI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("CHAT_HISTORY_LEN", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:              v.GetString("APP_ENV"),
		APIPort:             v.GetString("API_PORT"),
		JWTKey:              []byte(v.GetString("JWT_SECRET")),
		JWTExp:              time.Duration(v.GetInt("JWT_EXPIRATION_HOURS")) * time.Hour,
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPassword:          v.GetString("DB_PASSWORD"),
		DBName:              v.GetString("DB_NAME"),
		DBSslMode:           v.GetString("DB_SSLMODE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		SyncQueueName:       v.GetString("SYNC_QUEUE_NAME"),
		SyncLockPrefix:      v.GetString("SYNC_LOCK_PREFIX"),
		SyncLockTTLSeconds:  v.GetInt("SYNC_LOCK_TTL_SECONDS"),
		SyncMaxAttempts:     v.GetInt("SYNC_MAX_ATTEMPTS"),
		SyncRetryDelaySecs:  v.GetInt("SYNC_RETRY_DELAY_SECONDS"),
		SyncSubmissionLimit: v.GetInt("SYNC_SUBMISSION_LIMIT"),
		SyncWorkerInProcess: v.GetBool("SYNC_WORKER_IN_PROCESS"),
		LeetCodeGraphQLURL:  v.GetString("LEETCODE_GRAPHQL_URL"),
		CodeforcesAPIURL:    strings.TrimRight(v.GetString("CODEFORCES_API_URL"), "/"),
		LeetCodeRPS:         v.GetFloat64("LEETCODE_RPS"),
		CodeforcesRPS:       v.GetFloat64("CODEFORCES_RPS"),
		HTTPClientTimeout:   time.Duration(v.GetInt("HTTP_CLIENT_TIMEOUT_SECONDS")) * time.Second,
		CalendarStaleAfter:  time.Duration(v.GetInt("CALENDAR_STALE_HOURS")) * time.Hour,
		DashboardCacheTTL:   time.Duration(v.GetInt("DASHBOARD_CACHE_TTL_SECONDS")) * time.Second,
		AIBaseURL:           strings.TrimRight(v.GetString("AI_BASE_URL"), "/"),
		AIAPIKey:            v.GetString("AI_API_KEY"),
		AIModel:             v.GetString("AI_MODEL"),
		ChatHistoryLen:      v.GetInt("CHAT_HISTORY_LEN"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFile:             v.GetString("LOG_FILE"),
		TracingEnabled:      v.GetBool("TRACING_ENABLED"),
		TracingEndpoint:     v.GetString("TRACING_ENDPOINT"),
		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "release"
}

func (c *Config) validate() error {
	if c.IsProduction() && len(c.JWTKey) < 32 {
		return fmt.Errorf("JWT secret is too short (%d bytes), must be at least 32 in %s mode", len(c.JWTKey), c.AppEnv)
	}
	if c.SyncLockTTLSeconds <= 0 {
		return fmt.Errorf("SYNC_LOCK_TTL_SECONDS must be positive, got %d", c.SyncLockTTLSeconds)
	}
	if c.LeetCodeRPS <= 0 || c.CodeforcesRPS <= 0 {
		return fmt.Errorf("collector rate limits must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
