package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dosada05/uniplay/storage"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds every setting of the uniplay binary.
type Config struct {
	DatabaseURL   string
	StorageDriver string
	JWTSecretKey  string
	ServerPort    int
	LogLevel      slog.Level

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	DefaultTotalOvers    int
	AutoPlayBaseInterval time.Duration
	PredictorCommand     string
	PredictorTimeout     time.Duration
	RealtimePGRelay      bool
	ScheduleLocation     *time.Location

	R2 storage.R2Config
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply their
// own environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		DatabaseURL:          getenv("DATABASE_URL"),
		StorageDriver:        p.str("STORAGE_DRIVER", StorageDriverPostgres),
		JWTSecretKey:         getenv("JWT_SECRET_KEY"),
		ServerPort:           p.integer("SERVER_PORT", 8080),
		CORSAllowedOrigins:   p.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:         p.float("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       p.integer("RATE_LIMIT_BURST", 20),
		DefaultTotalOvers:    p.integer("DEFAULT_TOTAL_OVERS", 20),
		AutoPlayBaseInterval: p.duration("AUTOPLAY_BASE_INTERVAL", 3*time.Second),
		PredictorCommand:     getenv("PREDICTOR_COMMAND"),
		PredictorTimeout:     p.duration("PREDICTOR_TIMEOUT", 10*time.Second),
		RealtimePGRelay:      p.boolean("REALTIME_PG_RELAY", false),
		R2: storage.R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(p.str("LOG_LEVEL", "info"))); err != nil {
		p.fail("LOG_LEVEL", err)
	}

	cfg.ScheduleLocation = time.Local
	if tz := getenv("SCHEDULE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			p.fail("SCHEDULE_TIMEZONE", err)
		}
		cfg.ScheduleLocation = loc
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StorageDriverMemory:
		if c.RealtimePGRelay {
			return fmt.Errorf("REALTIME_PG_RELAY requires STORAGE_DRIVER=%s", StorageDriverPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.StorageDriver)
	}

	if c.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DefaultTotalOvers <= 0 {
		return fmt.Errorf("DEFAULT_TOTAL_OVERS must be positive, got %d", c.DefaultTotalOvers)
	}
	if c.AutoPlayBaseInterval <= 0 || c.PredictorTimeout <= 0 {
		return fmt.Errorf("AUTOPLAY_BASE_INTERVAL and PREDICTOR_TIMEOUT must be positive")
	}
	if c.R2.Enabled() && !c.R2.Complete() {
		return storage.ErrIncompleteR2Config
	}
	return nil
}

// parser keeps the first conversion error so Load reports it once.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
