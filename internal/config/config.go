package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Sessions      SessionsConfig
	ObjectStore   ObjectStoreConfig
	Engine        EngineConfig
	Uploads       UploadsConfig
	AI            AIConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
	Maintenance   MaintenanceConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins string
}

type SessionBackend string

const (
	SessionBackendMemory   SessionBackend = "memory"
	SessionBackendPostgres SessionBackend = "postgres"
)

type SessionsConfig struct {
	Backend         SessionBackend
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ObjectStoreBackend string

const (
	ObjectStoreBackendS3     ObjectStoreBackend = "s3"
	ObjectStoreBackendMemory ObjectStoreBackend = "memory"
)

type ObjectStoreConfig struct {
	Backend          ObjectStoreBackend
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type EngineConfig struct {
	RowLimit         int
	SchemaSampleRows int
	WorkDir          string
}

type UploadsConfig struct {
	MaxBytes int64
}

type AIConfig struct {
	TranslateEnabled bool
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	Timeout          time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// MaintenanceConfig drives the session janitor. A zero SessionTTL disables
// retention sweeps.
type MaintenanceConfig struct {
	SessionTTL        time.Duration
	RetentionInterval time.Duration
	IntegrityInterval time.Duration
	SweepBatchSize    int
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("PLAINSQL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid PLAINSQL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	var backend, objectBackend string
	steps := []func() error{
		func() error { return applyString(lookup, "PLAINSQL_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "PLAINSQL_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "PLAINSQL_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "PLAINSQL_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "PLAINSQL_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "PLAINSQL_HTTP_ALLOWED_ORIGINS", &cfg.HTTP.AllowedOrigins) },
		func() error { return applyString(lookup, "PLAINSQL_SESSIONS_BACKEND", &backend) },
		func() error { return applyString(lookup, "PLAINSQL_SESSIONS_DSN", &cfg.Sessions.DSN) },
		func() error { return applyInt(lookup, "PLAINSQL_SESSIONS_MAX_OPEN_CONNS", &cfg.Sessions.MaxOpenConns) },
		func() error { return applyInt(lookup, "PLAINSQL_SESSIONS_MAX_IDLE_CONNS", &cfg.Sessions.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "PLAINSQL_SESSIONS_CONN_MAX_IDLE_TIME", &cfg.Sessions.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "PLAINSQL_SESSIONS_CONN_MAX_LIFETIME", &cfg.Sessions.ConnMaxLifetime)
		},
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_BACKEND", &objectBackend) },
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "PLAINSQL_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "PLAINSQL_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "PLAINSQL_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "PLAINSQL_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyInt(lookup, "PLAINSQL_ENGINE_ROW_LIMIT", &cfg.Engine.RowLimit) },
		func() error { return applyInt(lookup, "PLAINSQL_ENGINE_SCHEMA_SAMPLE_ROWS", &cfg.Engine.SchemaSampleRows) },
		func() error { return applyString(lookup, "PLAINSQL_ENGINE_WORK_DIR", &cfg.Engine.WorkDir) },
		func() error { return applyInt64(lookup, "PLAINSQL_UPLOADS_MAX_BYTES", &cfg.Uploads.MaxBytes) },
		func() error { return applyBool(lookup, "PLAINSQL_AI_TRANSLATE_ENABLED", &cfg.AI.TranslateEnabled) },
		func() error { return applyString(lookup, "PLAINSQL_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "PLAINSQL_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "PLAINSQL_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "PLAINSQL_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "PLAINSQL_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "PLAINSQL_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "PLAINSQL_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "PLAINSQL_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "PLAINSQL_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
		func() error { return applyDuration(lookup, "PLAINSQL_SESSION_TTL", &cfg.Maintenance.SessionTTL) },
		func() error {
			return applyDuration(lookup, "PLAINSQL_MAINTENANCE_RETENTION_INTERVAL", &cfg.Maintenance.RetentionInterval)
		},
		func() error {
			return applyDuration(lookup, "PLAINSQL_MAINTENANCE_INTEGRITY_INTERVAL", &cfg.Maintenance.IntegrityInterval)
		},
		func() error { return applyInt(lookup, "PLAINSQL_MAINTENANCE_BATCH_SIZE", &cfg.Maintenance.SweepBatchSize) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if backend != "" {
		cfg.Sessions.Backend = SessionBackend(strings.ToLower(backend))
	}
	switch cfg.Sessions.Backend {
	case SessionBackendMemory:
	case SessionBackendPostgres:
		if cfg.Sessions.DSN == "" {
			return Config{}, fmt.Errorf("PLAINSQL_SESSIONS_DSN is required for the postgres session backend")
		}
	default:
		return Config{}, fmt.Errorf("invalid PLAINSQL_SESSIONS_BACKEND: %q", cfg.Sessions.Backend)
	}
	if objectBackend != "" {
		cfg.ObjectStore.Backend = ObjectStoreBackend(strings.ToLower(objectBackend))
	}
	switch cfg.ObjectStore.Backend {
	case ObjectStoreBackendS3, ObjectStoreBackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid PLAINSQL_OBJECTSTORE_BACKEND: %q", cfg.ObjectStore.Backend)
	}
	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		return Config{}, fmt.Errorf("upload size limit must be positive")
	}
	if cfg.Maintenance.SessionTTL < 0 {
		return Config{}, fmt.Errorf("session ttl must not be negative")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "plainsql-api"},
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: "*",
		},
		Sessions: SessionsConfig{
			Backend:         SessionBackendMemory,
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Backend:          ObjectStoreBackendS3,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "plainsql",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Engine: EngineConfig{
			RowLimit:         1000,
			SchemaSampleRows: 100,
			WorkDir:          "",
		},
		Uploads: UploadsConfig{
			MaxBytes: 64 << 20,
		},
		AI: AIConfig{
			TranslateEnabled: false,
			BaseURL:          "https://api.openai.com",
			Model:            "gpt-4o-mini",
			Temperature:      0,
			Timeout:          15 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
		Maintenance: MaintenanceConfig{
			SessionTTL:        24 * time.Hour,
			RetentionInterval: 10 * time.Minute,
			IntegrityInterval: 30 * time.Minute,
			SweepBatchSize:    500,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.ObjectStore.Backend = ObjectStoreBackendMemory
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
		cfg.Maintenance.SessionTTL = time.Hour
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.HTTP.AllowedOrigins = ""
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
