package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/example/parish-roster/internal/logging"
)

// Config captures environment driven configuration values for the roster service.
type Config struct {
	HTTPPort   int    `env:"ROSTER_HTTP_PORT" envDefault:"8080"`
	SQLitePath string `env:"ROSTER_SQLITE_PATH" envDefault:"roster.db"`
	Timezone   string `env:"ROSTER_TIMEZONE" envDefault:"America/Sao_Paulo"`

	DefaultDaysBefore int `env:"ROSTER_DEFAULT_DAYS_BEFORE" envDefault:"10"`

	LogLevel  string `env:"ROSTER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ROSTER_LOG_FORMAT" envDefault:"json"`

	DraftTTL       time.Duration `env:"ROSTER_DRAFT_TTL" envDefault:"2h"`
	DraftCacheSize int           `env:"ROSTER_DRAFT_CACHE_SIZE" envDefault:"1024"`
	CommitTimeout  time.Duration `env:"ROSTER_COMMIT_TIMEOUT" envDefault:"10s"`

	ReconcileSchedule string `env:"ROSTER_RECONCILE_SCHEDULE" envDefault:"@hourly"`

	// AMQPURL enables commit notifications when set.
	AMQPURL      string `env:"ROSTER_AMQP_URL"`
	AMQPExchange string `env:"ROSTER_AMQP_EXCHANGE" envDefault:"parish.roster"`

	// BootstrapAdminID registers an administrator on startup when the
	// minister table is empty.
	BootstrapAdminID   string `env:"ROSTER_BOOTSTRAP_ADMIN_ID"`
	BootstrapAdminName string `env:"ROSTER_BOOTSTRAP_ADMIN_NAME" envDefault:"Coordenação"`
}

// Location resolves Timezone. Validate has already checked it on loaded configs.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingOptions returns the options for logging.New.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{Format: c.LogFormat, Level: c.LogLevel}
}

// Load reads an optional .env file from the working directory and then parses
// the process environment. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("falha ao ler o arquivo .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("variáveis de ambiente inválidas: %w", err)
	}
	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	cfg.AMQPURL = strings.TrimSpace(cfg.AMQPURL)
	cfg.BootstrapAdminID = strings.TrimSpace(cfg.BootstrapAdminID)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid variable at once.
func (c Config) Validate() error {
	invalid := make([]string, 0, 4)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "ROSTER_HTTP_PORT")
	}
	if c.SQLitePath == "" {
		invalid = append(invalid, "ROSTER_SQLITE_PATH")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil || strings.TrimSpace(c.Timezone) == "" {
		invalid = append(invalid, "ROSTER_TIMEZONE")
	}
	if c.DefaultDaysBefore < 1 || c.DefaultDaysBefore > 28 {
		invalid = append(invalid, "ROSTER_DEFAULT_DAYS_BEFORE")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "ROSTER_LOG_LEVEL")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		invalid = append(invalid, "ROSTER_LOG_FORMAT")
	}
	if c.DraftTTL <= 0 {
		invalid = append(invalid, "ROSTER_DRAFT_TTL")
	}
	if c.DraftCacheSize <= 0 {
		invalid = append(invalid, "ROSTER_DRAFT_CACHE_SIZE")
	}
	if c.CommitTimeout <= 0 {
		invalid = append(invalid, "ROSTER_COMMIT_TIMEOUT")
	}
	if c.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
			invalid = append(invalid, "ROSTER_RECONCILE_SCHEDULE")
		}
	}
	if c.AMQPURL != "" && strings.TrimSpace(c.AMQPExchange) == "" {
		invalid = append(invalid, "ROSTER_AMQP_EXCHANGE")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("valores inválidos nas variáveis de ambiente: %s", strings.Join(invalid, ", "))
	}
	return nil
}
