package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// Enabled reports whether enough is configured to talk to Casdoor.
func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.Cert != ""
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DBDriver       string
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	RedisURL string

	KafkaBrokers []string
	EventsTopic  string

	ExamTimezone  *time.Location
	SweepInterval time.Duration
	SweepBatch    int

	Casdoor CasdoorConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

// SetDefaults registers the default for every key LoadFrom reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("events_topic", "exam-engine.events")
	v.SetDefault("exam_timezone", "UTC")
	v.SetDefault("sweep_interval", "0s")
	v.SetDefault("sweep_batch", 500)
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom builds a Config from v, which may already carry bound command flags.
func LoadFrom(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("exam_timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXAM_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		Environment:    v.GetString("environment"),
		LogLevel:       ParseLogLevel(v.GetString("log_level")),
		DBDriver:       strings.ToLower(v.GetString("db_driver")),
		DatabaseURL:    v.GetString("database_url"),
		DBMaxOpenConns: v.GetInt("db_max_open_conns"),
		DBMaxIdleConns: v.GetInt("db_max_idle_conns"),
		RedisURL:       v.GetString("redis_url"),
		KafkaBrokers:   splitList(v.GetString("kafka_brokers")),
		EventsTopic:    v.GetString("events_topic"),
		ExamTimezone:   loc,
		SweepInterval:  v.GetDuration("sweep_interval"),
		SweepBatch:     v.GetInt("sweep_batch"),
		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("casdoor_endpoint"),
			ClientID:     v.GetString("casdoor_client_id"),
			ClientSecret: v.GetString("casdoor_client_secret"),
			Cert:         v.GetString("casdoor_cert"),
			Organization: v.GetString("casdoor_organization"),
			Application:  v.GetString("casdoor_application"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
