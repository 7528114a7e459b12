package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/tripseal-backend/internal/data/db"
	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/envutil"
	"github.com/yungbote/tripseal-backend/internal/platform/gcp"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type Config struct {
	Port           string
	LogMode        string
	Tracing        observability.TracingConfig
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	Postgres db.PostgresConfig

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	ObjectStorage gcp.ObjectStorageConfig

	MaxImageBytes       int64
	MaxPayloadBytes     int64
	ImageEncodeTimeout  time.Duration
	CoinTransferTimeout time.Duration
	CoinLockWait        time.Duration
	StrictSealGating    bool
	PoisonedDates       []string
	AllowedOrigins      []string
	ShutdownTimeout     time.Duration
}

// fileOverlay is the optional CONFIG_FILE document. Set fields replace the
// environment values.
type fileOverlay struct {
	Limits struct {
		MaxImageBytes       *int64  `yaml:"max_image_bytes"`
		MaxPayloadBytes     *int64  `yaml:"max_payload_bytes"`
		ImageEncodeTimeout  *string `yaml:"image_encode_timeout"`
		CoinTransferTimeout *string `yaml:"coin_transfer_timeout"`
		CoinLockWait        *string `yaml:"coin_lock_wait"`
	} `yaml:"limits"`
	Seals struct {
		StrictGating *bool `yaml:"strict_gating"`
	} `yaml:"seals"`
	PoisonedTimestampDates []string `yaml:"poisoned_timestamp_dates"`
	CORS                   struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

const defaultJWTSecret = "defaultsecret"

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),
		Tracing: observability.TracingConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "tripseal-backend"),
			Version:     envutil.String("SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float64("OTEL_SAMPLER_RATIO", 0.1),
		},
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", 24*time.Hour),
		Postgres: db.PostgresConfig{
			Host:            envutil.String("POSTGRES_HOST", "localhost"),
			Port:            envutil.String("POSTGRES_PORT", "5432"),
			User:            envutil.String("POSTGRES_USER", "postgres"),
			Password:        envutil.String("POSTGRES_PASSWORD", ""),
			Name:            envutil.String("POSTGRES_NAME", "tripseal"),
			SSLMode:         envutil.String("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envutil.Int("POSTGRES_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		RedisPrefix:         envutil.String("REDIS_EVENT_PREFIX", "tripseal-events"),
		MaxImageBytes:       envutil.Int64("MAX_IMAGE_BYTES", 5<<20),
		MaxPayloadBytes:     envutil.Int64("MAX_PAYLOAD_BYTES", 50<<20),
		ImageEncodeTimeout:  envutil.Duration("IMAGE_ENCODE_TIMEOUT", 10*time.Second),
		CoinTransferTimeout: envutil.Duration("COIN_TRANSFER_TIMEOUT", 10*time.Second),
		CoinLockWait:        envutil.Duration("COIN_LOCK_WAIT", 5*time.Second),
		StrictSealGating:    envutil.Bool("STRICT_SEAL_GATING", false),
		PoisonedDates:       envutil.List("POISONED_TIMESTAMP_DATES", nil),
		AllowedOrigins:      envutil.List("CORS_ALLOWED_ORIGINS", nil),
		ShutdownTimeout:     envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	storageCfg, err := gcp.ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return cfg, fmt.Errorf("object storage config: %w", err)
	}
	cfg.ObjectStorage = storageCfg

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := applyOverlay(&cfg, raw); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		log.Info("Applied config file overlay", "path", path)
	}

	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY is unset; using the development default")
	}
	return cfg, nil
}

func applyOverlay(cfg *Config, raw []byte) error {
	var o fileOverlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return err
	}
	if v := o.Limits.MaxImageBytes; v != nil {
		cfg.MaxImageBytes = *v
	}
	if v := o.Limits.MaxPayloadBytes; v != nil {
		cfg.MaxPayloadBytes = *v
	}
	durations := []struct {
		key string
		raw *string
		dst *time.Duration
	}{
		{"image_encode_timeout", o.Limits.ImageEncodeTimeout, &cfg.ImageEncodeTimeout},
		{"coin_transfer_timeout", o.Limits.CoinTransferTimeout, &cfg.CoinTransferTimeout},
		{"coin_lock_wait", o.Limits.CoinLockWait, &cfg.CoinLockWait},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(*d.raw))
		if err != nil {
			return fmt.Errorf("limits.%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if v := o.Seals.StrictGating; v != nil {
		cfg.StrictSealGating = *v
	}
	if len(o.PoisonedTimestampDates) > 0 {
		cfg.PoisonedDates = o.PoisonedTimestampDates
	}
	if len(o.CORS.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = o.CORS.AllowedOrigins
	}
	return nil
}
