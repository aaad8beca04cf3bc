package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"os"
)

// Config holds the environment-supplied settings for the booking backend.
//
// Downstream credentials (database, CRM, automation webhook, redis) are all
// optional: a missing value disables that sink and the service degrades to
// validation + local response. Losing a sink is preferable to refusing
// bookings.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL   string
	MigrationsDir string

	CORSAllowAll bool
	CORSOrigins  []string

	AmoCRMDomain      string
	AmoCRMAccessToken string
	AmoCRMPipelineID  int

	// amoCRM custom field ids, account-specific.
	AmoCRMFieldService     int
	AmoCRMFieldMaster      int
	AmoCRMFieldAppointment int
	AmoCRMFieldVisitorID   int

	WebhookURL     string
	WebhookTestURL string
	WebhookTest    bool

	RedisAddr     string
	RedisPassword string

	CatalogPath string

	// SinkTimeout bounds every outbound sink call. A timed-out sink is
	// treated exactly like an unreachable one.
	SinkTimeout time.Duration
}

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		CORSAllowAll:  corsAllowAll,
		CORSOrigins:   corsOrigins,

		AmoCRMDomain:      getEnv("AMOCRM_DOMAIN", ""),
		AmoCRMAccessToken: getEnv("AMOCRM_ACCESS_TOKEN", ""),
		AmoCRMPipelineID:  getEnvInt("AMOCRM_PIPELINE_ID", 1),

		AmoCRMFieldService:     getEnvInt("AMOCRM_FIELD_SERVICE", 0),
		AmoCRMFieldMaster:      getEnvInt("AMOCRM_FIELD_MASTER", 0),
		AmoCRMFieldAppointment: getEnvInt("AMOCRM_FIELD_APPOINTMENT", 0),
		AmoCRMFieldVisitorID:   getEnvInt("AMOCRM_FIELD_VISITOR_ID", 0),

		WebhookURL:     getEnv("N8N_WEBHOOK_URL", ""),
		WebhookTestURL: getEnv("N8N_TEST_WEBHOOK_URL", ""),
		WebhookTest:    strings.EqualFold(getEnv("N8N_TEST_MODE", "false"), "true"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CatalogPath: getEnv("CATALOG_PATH", "config/catalog.yaml"),

		SinkTimeout: mustDuration(getEnv("SINK_TIMEOUT", "10s"), 10*time.Second),
	}

	return cfg, nil
}

// StoreEnabled reports whether the primary store sink is configured.
func (c *Config) StoreEnabled() bool {
	return c.DatabaseURL != ""
}

// CRMEnabled reports whether the CRM sink is configured.
func (c *Config) CRMEnabled() bool {
	return c.AmoCRMDomain != "" && c.AmoCRMAccessToken != ""
}

// NotifierEnabled reports whether the automation webhook is configured.
func (c *Config) NotifierEnabled() bool {
	return c.ActiveWebhookURL() != ""
}

// ActiveWebhookURL returns the webhook endpoint for the current mode. Test
// mode falls back to the production URL when no test URL is set.
func (c *Config) ActiveWebhookURL() string {
	if c.WebhookTest && c.WebhookTestURL != "" {
		return c.WebhookTestURL
	}
	return c.WebhookURL
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return n
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
