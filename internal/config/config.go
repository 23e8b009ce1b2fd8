package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env             string `yaml:"env"`
	BaseURL         string `yaml:"base_url"`
	ShortCodeLength int    `yaml:"short_code_length"`
	Lifecycle       `yaml:"lifecycle"`
	Sweeper         `yaml:"sweeper"`
	Storage         `yaml:"storage"`
	HTTPServer      `yaml:"http_server"`
	Postgres        `yaml:"postgres"`
	Redis           `yaml:"redis"`
}

// Lifecycle holds the limits applied when URLs are created.
type Lifecycle struct {
	MaxActive       int `yaml:"max_active"`
	MaxRetries      int `yaml:"max_retries"`
	DefaultValidity int `yaml:"default_validity"`
}

var defaultLifecycle = Lifecycle{
	MaxActive:       5,
	MaxRetries:      100,
	DefaultValidity: 30,
}

// Sweeper controls the background purge of expired URLs. A zero Retention disables it.
type Sweeper struct {
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

var defaultSweeper = Sweeper{
	Interval: time.Minute,
}

func (s *Sweeper) Enabled() bool {
	return s.Retention > 0 && s.Interval > 0
}

type Storage struct {
	Driver string `yaml:"driver"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	MigrationsPath:  "file://migrations",
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	KeyPrefix    string `yaml:"key_prefix"`
}

var defaultRedis = Redis{
	Addr:         "localhost:6379",
	PoolSize:     10,
	MinIdleConns: 2,
	KeyPrefix:    "short-links:",
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.ShortCodeLength = 6
	cfg.Lifecycle = defaultLifecycle
	cfg.Sweeper = defaultSweeper
	cfg.Storage = Storage{Driver: DriverMemory}
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
}

func (cfg *Config) validate() error {
	var errs []error

	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", cfg.Env))
	}

	switch cfg.Storage.Driver {
	case DriverMemory, DriverPostgres, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver))
	}

	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("base_url %q must start with http:// or https://", cfg.BaseURL))
	}
	if cfg.ShortCodeLength < 3 || cfg.ShortCodeLength > 10 {
		errs = append(errs, fmt.Errorf("short_code_length %d is outside 3..10", cfg.ShortCodeLength))
	}
	if cfg.Lifecycle.MaxActive < 1 {
		errs = append(errs, errors.New("lifecycle.max_active must be positive"))
	}
	if cfg.Lifecycle.MaxRetries < 1 {
		errs = append(errs, errors.New("lifecycle.max_retries must be positive"))
	}
	if cfg.Lifecycle.DefaultValidity < 1 || cfg.Lifecycle.DefaultValidity > 10080 {
		errs = append(errs, fmt.Errorf("lifecycle.default_validity %d is outside 1..10080", cfg.Lifecycle.DefaultValidity))
	}
	if cfg.Sweeper.Interval < 0 || cfg.Sweeper.Retention < 0 {
		errs = append(errs, errors.New("sweeper durations must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}

	return nil
}
