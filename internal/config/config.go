package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/jwtly10/insightflow/internal/backtest"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Logging struct {
		Level  string   `yaml:"level"`
		Format string   `yaml:"format"`
		Topics []string `yaml:"topics"`
	} `yaml:"logging"`
	Oanda struct {
		AccountID    string `yaml:"account_id"`
		APIKey       string `yaml:"api_key"`
		APIURL       string `yaml:"api_url"`
		Instrument   string `yaml:"instrument"`
		Granularity  string `yaml:"granularity"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"oanda"`
	Backtest struct {
		InitialBalance float64 `yaml:"initial_balance"`
		EquityMode     string  `yaml:"equity_mode"`
		OutputDir      string  `yaml:"output_dir"`
	} `yaml:"backtest"`
	Database struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		SQLitePath  string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		HeatmapCron string `yaml:"heatmap_cron"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("INSIGHTFLOW_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INSIGHTFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INSIGHTFLOW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("INSIGHTFLOW_EQUITY_MODE"); v != "" {
		c.Backtest.EquityMode = v
	}
	if v := os.Getenv("INSIGHTFLOW_OUTPUT_DIR"); v != "" {
		c.Backtest.OutputDir = v
	}
	if v := os.Getenv("INSIGHTFLOW_HEATMAP_CRON"); v != "" {
		c.Schedule.HeatmapCron = v
	}
	if v := os.Getenv("INSIGHTFLOW_INITIAL_BALANCE"); v != "" {
		balance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INSIGHTFLOW_INITIAL_BALANCE: %w", err)
		}
		c.Backtest.InitialBalance = balance
	}
	if v := os.Getenv("OANDA_ACCOUNT_ID"); v != "" {
		c.Oanda.AccountID = v
	}
	if v := os.Getenv("OANDA_API_KEY"); v != "" {
		c.Oanda.APIKey = v
	}
	if v := os.Getenv("OANDA_API_URL"); v != "" {
		c.Oanda.APIURL = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Oanda.Instrument == "" {
		c.Oanda.Instrument = "NAS100_USD"
	}
	if c.Oanda.Granularity == "" {
		c.Oanda.Granularity = "M15"
	}
	if c.Oanda.LookbackDays == 0 {
		c.Oanda.LookbackDays = 30
	}
	if c.Backtest.InitialBalance == 0 {
		c.Backtest.InitialBalance = backtest.DefaultInitialBalance
	}
	if c.Backtest.OutputDir == "" {
		c.Backtest.OutputDir = "out"
	}
	if c.Schedule.HeatmapCron == "" {
		c.Schedule.HeatmapCron = "0 */15 * * * *"
	}
}

// EquityMode parses Backtest.EquityMode.
func (c *Config) EquityMode() (backtest.Mode, error) {
	return backtest.ParseMode(c.Backtest.EquityMode)
}

// Validate checks values that Load cannot default. OANDA credentials are
// only checked by the commands that need them.
func (c *Config) Validate() error {
	if c.Backtest.InitialBalance <= 0 {
		return fmt.Errorf("backtest.initial_balance must be positive")
	}
	if _, err := c.EquityMode(); err != nil {
		return fmt.Errorf("backtest.equity_mode: %w", err)
	}
	if c.Oanda.LookbackDays < 0 {
		return fmt.Errorf("oanda.lookback_days must not be negative")
	}
	if _, err := cron.NewParser(cronFields).Parse(c.Schedule.HeatmapCron); err != nil {
		return fmt.Errorf("schedule.heatmap_cron: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// cronFields matches the scheduler, which runs with a seconds field.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
