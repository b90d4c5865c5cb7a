package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	SentryEnabled bool `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`

	// notification sweeps
	SweepIntervalSeconds       int `toml:"sweep_interval_seconds"`
	ReminderLookaheadMinutes   int `toml:"reminder_lookahead_minutes"`
	ScheduleMissedGraceMinutes int `toml:"schedule_missed_grace_minutes"`

	// workout generation llm api
	LLMBaseURL string `toml:"llm_base_url"`
	LLMModel   string `toml:"llm_model"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var configToml Toml
	if err := toml.Unmarshal(configBytes, &configToml); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg, err := configToml.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section missing for env: %s", env)
	}

	cfg.Environment = env
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = 60
	}
	if c.ReminderLookaheadMinutes <= 0 {
		c.ReminderLookaheadMinutes = 30
	}
	if c.ScheduleMissedGraceMinutes <= 0 {
		c.ScheduleMissedGraceMinutes = 120
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
}
