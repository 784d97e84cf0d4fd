package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mediagen/internal/observability"
)

const (
	LedgerDriverPostgres = "postgres"
	LedgerDriverMemory   = "memory"
	LedgerDriverSQLite   = "sqlite"

	DefaultKieBaseURL = "https://api.kie.ai"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	DatabaseURL       string
	SQLitePath        string
	LedgerDriver      string
	KieAPIKey         string
	KieBaseURL        string
	KieCallbackURL    string
	ModelRegistryPath string
	PollInterval      time.Duration
	TaskTimeout       time.Duration
	OverallTimeout    time.Duration
	SweepInterval     time.Duration
	SweepGrace        time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	KieRequestTimeout time.Duration
	RateLimitPerMin   int
	CORSOrigins       []string
	TraceExporter     string
	TraceEndpoint     string
	TraceHeaders      map[string]string
	TraceInsecure     bool
	TraceSampleRatio  float64
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", "mediagen.db"),
		LedgerDriver:      strings.ToLower(getEnv("LEDGER_DRIVER", LedgerDriverPostgres)),
		KieAPIKey:         strings.TrimSpace(os.Getenv("KIE_API_KEY")),
		KieBaseURL:        getEnv("KIE_BASE_URL", DefaultKieBaseURL),
		KieCallbackURL:    os.Getenv("KIE_CALLBACK_URL"),
		ModelRegistryPath: os.Getenv("MODEL_REGISTRY_PATH"),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		TaskTimeout:       time.Millisecond * time.Duration(getEnvInt("TASK_TIMEOUT_MS", 300000)),
		OverallTimeout:    time.Millisecond * time.Duration(getEnvInt("OVERALL_TIMEOUT_MS", 300000)),
		SweepInterval:     time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)),
		SweepGrace:        time.Second * time.Duration(getEnvInt("SWEEP_GRACE_SECONDS", 360)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		KieRequestTimeout: time.Second * time.Duration(getEnvInt("KIE_REQUEST_TIMEOUT_SECONDS", 30)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:       splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TraceExporter:     strings.ToLower(getEnv("OTEL_EXPORTER", observability.ExporterNone)),
		TraceEndpoint:     strings.TrimSpace(os.Getenv("OTEL_ENDPOINT")),
		TraceHeaders:      parseHeaders(os.Getenv("OTEL_HEADERS")),
		TraceInsecure:     getEnvBool("OTEL_INSECURE", true),
		TraceSampleRatio:  getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}

	// Generation requests are held open until the overall timeout fires, so the
	// write timeout has to outlive it.
	writeDefault := int((cfg.OverallTimeout + 30*time.Second) / time.Second)
	cfg.HTTPWriteTimeout = time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", writeDefault))

	switch cfg.LedgerDriver {
	case LedgerDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case LedgerDriverMemory, LedgerDriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported LEDGER_DRIVER %q", cfg.LedgerDriver)
	}

	if !observability.ValidExporter(cfg.TraceExporter) {
		return nil, fmt.Errorf("unsupported OTEL_EXPORTER %q", cfg.TraceExporter)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}

	return cfg, nil
}

// Tracing returns the tracer options for service.
func (c *Config) Tracing(service string) observability.Options {
	return observability.Options{
		Service:     service,
		Environment: c.AppEnv,
		Exporter:    c.TraceExporter,
		Endpoint:    c.TraceEndpoint,
		Headers:     c.TraceHeaders,
		Insecure:    c.TraceInsecure,
		SampleRatio: c.TraceSampleRatio,
	}
}

// RequestTimeout bounds a single provider HTTP call.
func (c *Config) RequestTimeout() time.Duration {
	if c.KieRequestTimeout <= 0 {
		return 30 * time.Second
	}
	return c.KieRequestTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// parseHeaders reads "k=v,k2=v2" pairs, skipping malformed ones.
func parseHeaders(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitCSV(raw) {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
