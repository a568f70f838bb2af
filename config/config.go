package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tazhate/familycal/internal/calendar"
)

type Config struct {
	DatabasePath string
	Timezone     *time.Location
	ServerPort   string
	APIUsername  string
	APIPassword  string
	LogLevel     string
	LogFormat    string
	WeekStart    time.Weekday

	// Telegram morning briefing and reminders, disabled without a token
	TelegramToken   string
	OwnerTelegramID int64
	MorningTime     string
	ReminderMinutes int

	// CalDAV push, disabled without URL and credentials
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

// fileConfig is the on-disk shape of a YAML or TOML config file. Every field
// is optional; environment variables override it.
type fileConfig struct {
	DatabasePath    string `yaml:"database_path" toml:"database_path"`
	Timezone        string `yaml:"timezone" toml:"timezone"`
	ServerPort      string `yaml:"server_port" toml:"server_port"`
	APIUsername     string `yaml:"api_username" toml:"api_username"`
	APIPassword     string `yaml:"api_password" toml:"api_password"`
	LogLevel        string `yaml:"log_level" toml:"log_level"`
	LogFormat       string `yaml:"log_format" toml:"log_format"`
	WeekStart       string `yaml:"week_start" toml:"week_start"`
	TelegramToken   string `yaml:"telegram_token" toml:"telegram_token"`
	OwnerTelegramID int64  `yaml:"owner_telegram_id" toml:"owner_telegram_id"`
	MorningTime     string `yaml:"morning_time" toml:"morning_time"`
	ReminderMinutes *int   `yaml:"reminder_minutes" toml:"reminder_minutes"`
	CalDAV          struct {
		URL      string `yaml:"url" toml:"url"`
		Username string `yaml:"username" toml:"username"`
		Password string `yaml:"password" toml:"password"`
		Calendar string `yaml:"calendar" toml:"calendar"`
	} `yaml:"caldav" toml:"caldav"`
}

func defaults() fileConfig {
	fc := fileConfig{
		DatabasePath: "./data/familycal.db",
		Timezone:     "Europe/Moscow",
		ServerPort:   "8080",
		LogLevel:     "info",
		LogFormat:    "json",
		WeekStart:    "monday",
		MorningTime:  "08:00",
	}
	minutes := 15
	fc.ReminderMinutes = &minutes
	return fc
}

// Load reads the optional config file (path argument, else CONFIG_FILE) and
// then applies environment variables on top.
func Load(path string) (*Config, error) {
	fc := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := readFile(path, &fc); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&fc); err != nil {
		return nil, err
	}

	return build(fc)
}

func readFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), fc); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file %q (use .yaml, .yml or .toml)", path)
	}
	return nil
}

func applyEnv(fc *fileConfig) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("DATABASE_PATH", &fc.DatabasePath)
	setString("TIMEZONE", &fc.Timezone)
	setString("SERVER_PORT", &fc.ServerPort)
	setString("API_USERNAME", &fc.APIUsername)
	setString("API_PASSWORD", &fc.APIPassword)
	setString("LOG_LEVEL", &fc.LogLevel)
	setString("LOG_FORMAT", &fc.LogFormat)
	setString("WEEK_START", &fc.WeekStart)
	setString("TELEGRAM_BOT_TOKEN", &fc.TelegramToken)
	setString("MORNING_TIME", &fc.MorningTime)
	setString("CALDAV_URL", &fc.CalDAV.URL)
	setString("CALDAV_USERNAME", &fc.CalDAV.Username)
	setString("CALDAV_PASSWORD", &fc.CalDAV.Password)
	setString("CALDAV_CALENDAR", &fc.CalDAV.Calendar)

	if v := os.Getenv("OWNER_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("OWNER_TELEGRAM_ID must be a number")
		}
		fc.OwnerTelegramID = id
	}

	if v := os.Getenv("REMINDER_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REMINDER_MINUTES must be a number")
		}
		fc.ReminderMinutes = &n
	}
	return nil
}

func build(fc fileConfig) (*Config, error) {
	tz, err := time.LoadLocation(fc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	weekStart, err := ParseWeekStart(fc.WeekStart)
	if err != nil {
		return nil, err
	}

	if _, _, err := calendar.ParseClock(fc.MorningTime); err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME: %w", err)
	}

	minutes := 0
	if fc.ReminderMinutes != nil {
		minutes = *fc.ReminderMinutes
	}
	if minutes < 0 {
		return nil, fmt.Errorf("REMINDER_MINUTES cannot be negative")
	}

	if fc.TelegramToken != "" && fc.OwnerTelegramID == 0 {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return &Config{
		DatabasePath:    fc.DatabasePath,
		Timezone:        tz,
		ServerPort:      fc.ServerPort,
		APIUsername:     fc.APIUsername,
		APIPassword:     fc.APIPassword,
		LogLevel:        fc.LogLevel,
		LogFormat:       fc.LogFormat,
		WeekStart:       weekStart,
		TelegramToken:   fc.TelegramToken,
		OwnerTelegramID: fc.OwnerTelegramID,
		MorningTime:     fc.MorningTime,
		ReminderMinutes: minutes,
		CalDAVURL:       fc.CalDAV.URL,
		CalDAVUsername:  fc.CalDAV.Username,
		CalDAVPassword:  fc.CalDAV.Password,
		CalDAVCalendar:  fc.CalDAV.Calendar,
	}, nil
}

// ParseWeekStart accepts "monday" or "sunday".
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("invalid WEEK_START %q (use monday or sunday)", s)
	}
}

// APIEnabled reports whether basic auth credentials are configured
func (c *Config) APIEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

// TelegramEnabled reports whether the briefing bot is configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.OwnerTelegramID != 0
}

// CalDAVEnabled reports whether CalDAV credentials are configured
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != "" && c.CalDAVUsername != "" && c.CalDAVPassword != ""
}
