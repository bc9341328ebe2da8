package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Durations are plain seconds in
// the YAML; the accessor methods convert.
type Config struct {
	Ledger struct {
		BaseURL      string `yaml:"base_url"`
		APIKey       string `yaml:"api_key"`
		Account      string `yaml:"account"`
		PollInterval int    `yaml:"poll_interval_seconds"`
	} `yaml:"ledger"`
	Profile struct {
		BaseURL  string `yaml:"base_url"`
		TTLDays  int    `yaml:"ttl_days"`
		Throttle int    `yaml:"throttle_seconds"`
	} `yaml:"profile"`
	Wheel struct {
		TargetTiles  int `yaml:"target_tiles"`
		MaxBaseTiles int `yaml:"max_base_tiles"`
		StripRepeats int `yaml:"strip_repeats"`
		SlowDelay    int `yaml:"slow_delay_seconds"`
		SpinDuration int `yaml:"spin_duration_seconds"`
		ResultHold   int `yaml:"result_hold_seconds"`
	} `yaml:"wheel"`
	Degen struct {
		WindowHours int    `yaml:"window_hours"`
		StateDir    string `yaml:"state_dir"`
	} `yaml:"degen"`
	Schedule struct {
		HousekeepCron string `yaml:"housekeep_cron"`
		SummaryCron   string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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

	// Environment variable overrides
	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		cfg.Ledger.BaseURL = v
	}
	if v := os.Getenv("LEDGER_API_KEY"); v != "" {
		cfg.Ledger.APIKey = v
	}
	if v := os.Getenv("LEDGER_ACCOUNT"); v != "" {
		cfg.Ledger.Account = v
	}
	if v := os.Getenv("PROFILE_BASE_URL"); v != "" {
		cfg.Profile.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Ledger.PollInterval == 0 {
		cfg.Ledger.PollInterval = 2
	}
	if cfg.Profile.TTLDays == 0 {
		cfg.Profile.TTLDays = 7
	}
	if cfg.Profile.Throttle == 0 {
		cfg.Profile.Throttle = 30
	}
	if cfg.Wheel.TargetTiles == 0 {
		cfg.Wheel.TargetTiles = 24
	}
	if cfg.Wheel.MaxBaseTiles == 0 {
		cfg.Wheel.MaxBaseTiles = 40
	}
	if cfg.Wheel.StripRepeats == 0 {
		cfg.Wheel.StripRepeats = 6
	}
	if cfg.Wheel.SlowDelay == 0 {
		cfg.Wheel.SlowDelay = 5
	}
	if cfg.Wheel.SpinDuration == 0 {
		cfg.Wheel.SpinDuration = 8
	}
	if cfg.Wheel.ResultHold == 0 {
		cfg.Wheel.ResultHold = 10
	}
	if cfg.Degen.WindowHours == 0 {
		cfg.Degen.WindowHours = 24
	}
	if cfg.Degen.StateDir == "" {
		cfg.Degen.StateDir = "data"
	}
	if cfg.Schedule.HousekeepCron == "" {
		cfg.Schedule.HousekeepCron = "0 */10 * * * *"
	}
	if cfg.Schedule.SummaryCron == "" {
		cfg.Schedule.SummaryCron = "0 0 0 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/jackpot_wheel.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	return cfg, nil
}

// PollInterval returns the ledger poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ledger.PollInterval) * time.Second
}

// ProfileTTL returns the profile cache TTL as a duration.
func (c *Config) ProfileTTL() time.Duration {
	return time.Duration(c.Profile.TTLDays) * 24 * time.Hour
}

// ProfileThrottle returns the per-account refetch throttle as a duration.
func (c *Config) ProfileThrottle() time.Duration {
	return time.Duration(c.Profile.Throttle) * time.Second
}

// DegenWindow returns the degen-of-the-day window as a duration.
func (c *Config) DegenWindow() time.Duration {
	return time.Duration(c.Degen.WindowHours) * time.Hour
}

// Validate checks that the configuration is coherent. An empty ledger URL is
// allowed; the app then runs against the built-in mock ledger.
func (c *Config) Validate() error {
	if c.Ledger.PollInterval < 1 {
		return fmt.Errorf("ledger.poll_interval_seconds must be at least 1")
	}
	if c.Wheel.StripRepeats < 2 {
		return fmt.Errorf("wheel.strip_repeats must be at least 2")
	}
	if c.Wheel.SpinDuration <= 0 || c.Wheel.ResultHold <= 0 {
		return fmt.Errorf("wheel durations must be positive")
	}
	if c.Degen.WindowHours <= 0 {
		return fmt.Errorf("degen.window_hours must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
