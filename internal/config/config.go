package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogFormat        = "json"
	defaultLogLevel         = "info"
	defaultMetricsNamespace = "invoicing"
	defaultMaxBodyBytes     = 1 << 20
	defaultShutdownTimeout  = 10 * time.Second
	defaultInputDir         = "input_files"
	defaultOutputDir        = "output_files"
	defaultOutputSuffix     = "_output"
	defaultBatchWorkers     = 4
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	MetricsNamespace   string
	MaxBodyBytes       int64
	ShutdownTimeout    time.Duration
	InputDir           string
	OutputDir          string
	OutputSuffix       string
	BatchWorkers       int
}

// Load reads a local .env file if present, then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. Variables already present in the
// environment are never overwritten by the file.
func LoadFrom(dotenvPath string) (Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv %s: %w", dotenvPath, err)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), defaultAppEnv),
		Port:               valueOrDefault(k.String("PORT"), defaultPort),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), defaultLogFormat),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), defaultLogLevel),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), defaultMetricsNamespace),
		InputDir:           valueOrDefault(k.String("INPUT_DIR"), defaultInputDir),
		OutputDir:          valueOrDefault(k.String("OUTPUT_DIR"), defaultOutputDir),
		OutputSuffix:       valueOrDefault(k.String("OUTPUT_SUFFIX"), defaultOutputSuffix),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	var err error
	if cfg.MetricsEnabled, err = parseBool("METRICS_ENABLED", k.String("METRICS_ENABLED"), true); err != nil {
		return Config{}, err
	}
	if cfg.MaxBodyBytes, err = parseInt64("MAX_BODY_BYTES", k.String("MAX_BODY_BYTES"), defaultMaxBodyBytes); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", k.String("SHUTDOWN_TIMEOUT"), defaultShutdownTimeout); err != nil {
		return Config{}, err
	}
	workers, err := parseInt64("BATCH_WORKERS", k.String("BATCH_WORKERS"), defaultBatchWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.BatchWorkers = int(workers)

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, errors.New("MAX_BODY_BYTES must be greater than 0")
	}
	if cfg.BatchWorkers < 1 {
		return Config{}, errors.New("BATCH_WORKERS must be at least 1")
	}

	return cfg, nil
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), defaultAppEnv)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseBool(name, raw string, fallback bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean, got %q", name, raw)
	}
}

func parseInt64(name, raw string, fallback int64) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func parseDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", name, raw)
	}
	return d, nil
}
