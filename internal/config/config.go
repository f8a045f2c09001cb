package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PivotMirror/internal/model"
	"PivotMirror/internal/projection"
	"PivotMirror/internal/series"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		// Source is yahoo, rest or mock; empty picks rest when base_url
		// is set and yahoo otherwise.
		Source    string   `yaml:"source"`
		BaseURL   string   `yaml:"base_url"`
		APIKey    string   `yaml:"api_key"`
		DataDir   string   `yaml:"data_dir"`
		AutoFetch *bool    `yaml:"auto_fetch"`
		Period    string   `yaml:"period"`
		Interval  string   `yaml:"interval"`
		Suffixes  []string `yaml:"suffixes"`
		// RefreshDays is the cache staleness threshold in whole days.
		RefreshDays int `yaml:"refresh_days"`
	} `yaml:"data_source"`
	Projection struct {
		Lookback  int    `yaml:"lookback"`
		Horizon   int    `yaml:"horizon"`
		PivotSide string `yaml:"pivot_side"`
		PivotDate string `yaml:"pivot_date"`
	} `yaml:"projection"`
	Watchlist struct {
		Path string `yaml:"path"`
	} `yaml:"watchlist"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Schedule struct {
		BatchCron string `yaml:"batch_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then config from a YAML file, then applies environment
// variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_SOURCE":        &c.DataSource.Source,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"DATA_DIR":           &c.DataSource.DataDir,
		"FETCH_PERIOD":       &c.DataSource.Period,
		"FETCH_INTERVAL":     &c.DataSource.Interval,
		"PIVOT_SIDE":         &c.Projection.PivotSide,
		"PIVOT_DATE":         &c.Projection.PivotDate,
		"WATCHLIST_PATH":     &c.Watchlist.Path,
		"OUTPUT_DIR":         &c.Output.Dir,
		"CRON_BATCH":         &c.Schedule.BatchCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"METRICS_ADDR":       &c.Metrics.Addr,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REFRESH_DAYS": &c.DataSource.RefreshDays,
		"LOOKBACK":     &c.Projection.Lookback,
		"HORIZON":      &c.Projection.Horizon,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("AUTO_FETCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse AUTO_FETCH: %w", err)
		}
		c.DataSource.AutoFetch = &b
	}
	if v := os.Getenv("MARKET_SUFFIXES"); v != "" {
		c.DataSource.Suffixes = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Source == "" {
		c.DataSource.Source = "yahoo"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Source = "rest"
		}
	}
	if c.DataSource.DataDir == "" {
		c.DataSource.DataDir = "data"
	}
	if c.DataSource.AutoFetch == nil {
		on := true
		c.DataSource.AutoFetch = &on
	}
	if c.DataSource.Period == "" {
		c.DataSource.Period = "1y"
	}
	if c.DataSource.Interval == "" {
		c.DataSource.Interval = "1d"
	}
	if c.DataSource.RefreshDays == 0 {
		c.DataSource.RefreshDays = 3
	}
	def := projection.DefaultOptions()
	if c.Projection.Lookback == 0 {
		c.Projection.Lookback = def.LookbackDays
	}
	if c.Projection.Horizon == 0 {
		c.Projection.Horizon = def.HorizonDays
	}
	if c.Projection.PivotSide == "" {
		c.Projection.PivotSide = string(def.Side)
	}
	if c.Watchlist.Path == "" {
		c.Watchlist.Path = "configs/watchlist.csv"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "outputs"
	}
	if c.Schedule.BatchCron == "" {
		c.Schedule.BatchCron = "0 30 18 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pivot_mirror.db"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.DataSource.Source {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest source")
		}
	default:
		return fmt.Errorf("data_source.source %q must be yahoo, rest or mock", c.DataSource.Source)
	}
	if c.DataSource.RefreshDays < 0 {
		return fmt.Errorf("data_source.refresh_days must not be negative")
	}
	if c.Projection.Lookback <= 0 {
		return fmt.Errorf("projection.lookback must be positive")
	}
	if c.Projection.Horizon < 0 {
		return fmt.Errorf("projection.horizon must not be negative")
	}
	if _, err := model.ParseSide(c.Projection.PivotSide); err != nil {
		return fmt.Errorf("projection.pivot_side: %w", err)
	}
	if c.Projection.PivotDate != "" {
		if _, ok := series.ParseDate(c.Projection.PivotDate); !ok {
			return fmt.Errorf("projection.pivot_date %q is not a date", c.Projection.PivotDate)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Options returns the default projection options. Call after Validate.
func (c *Config) Options() projection.Options {
	side, err := model.ParseSide(c.Projection.PivotSide)
	if err != nil {
		side = model.SideLow
	}
	opts := projection.Options{
		LookbackDays: c.Projection.Lookback,
		HorizonDays:  c.Projection.Horizon,
		Side:         side,
	}
	if d, ok := series.ParseDate(c.Projection.PivotDate); ok {
		opts.PivotDate = &d
	}
	return opts
}

// StalenessDays is the cache staleness threshold.
func (c *Config) StalenessDays() int { return c.DataSource.RefreshDays }
