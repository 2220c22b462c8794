// Package config loads runtime settings from flags, the environment, an
// optional config file, and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfigFile is read when --config is not given. A missing file is fine.
const DefaultConfigFile = ".env"

const prohibitedPathSymbols = "?*:|<>"

// Config holds all runtime configuration.
type Config struct {
	// Server
	Port            int
	Debug           bool
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Storage
	NotificationsFile string
	WatchStorage      bool

	// API rate limiting: RateLimitRequests per RateLimitWindow, process-wide
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Delivery
	ChannelRateLimit  int // sends per second per channel, 0 disables
	SchedulerInterval time.Duration
	Workers           int
	AllowedSources    []string

	// Senders
	LogfilePath     string
	TelegramToken   string
	TelegramChatID  string
	TelegramBaseURL string
	TelegramTimeout time.Duration
	SMTP            SMTP
}

// SMTP is the email sender's settings. Email is off unless Addr, From and To
// are all set.
type SMTP struct {
	Addr     string
	User     string
	Password string
	From     string
	To       string
}

// flag name -> viper key
var flagKeys = map[string]string{
	"port":               "port",
	"debug":              "debug",
	"notifications-file": "notifications_file",
	"log-level":          "log_level",
	"watch-storage":      "watch_storage",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("notifications_file", "data/allNotifications.json")
	v.SetDefault("log_level", "")
	v.SetDefault("read_timeout", 5*time.Second)
	v.SetDefault("write_timeout", 10*time.Second)
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", 15*time.Minute)
	v.SetDefault("channel_rate_limit", 10)
	v.SetDefault("scheduler_interval", 5*time.Second)
	v.SetDefault("workers", 4)
	v.SetDefault("watch_storage", false)
	v.SetDefault("allowed_sources", strings.Join(domain.DefaultSources, ","))
	v.SetDefault("logfile_path", "data/notifications.log")
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("telegram_base_url", "https://api.telegram.org")
	v.SetDefault("telegram_timeout", 10*time.Second)
	v.SetDefault("smtp_addr", "")
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")
	v.SetDefault("smtp_to", "")
}

// NewFlagSet declares the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.IntP("port", "p", 0, "port number")
	set.BoolP("debug", "d", false, "output extra debugging info")
	set.String("notifications-file", "", "path to the notification json storage")
	set.String("log-level", "", "log level (debug, info, warn, error)")
	set.Bool("watch-storage", false, "reload the storage file when it changes on disk")
	set.String("config", "", "config file (defaults to "+DefaultConfigFile+" when present)")
	return set
}

// Load parses args (without the program name) and resolves the final Config.
// pflag.ErrHelp is returned untouched when -h is given.
func Load(args []string) (*Config, error) {
	flags := NewFlagSet("notifyme")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
		v.SetConfigType("env")
	}
	v.SetConfigFile(path)

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: read config file %s: %w", ErrInvalidConfig, path, err)
}

func build(v *viper.Viper) (*Config, error) {
	if !v.IsSet("port") {
		return nil, fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}
	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("port")))
	if err != nil {
		return nil, fmt.Errorf("%w: port %q is not a number", ErrInvalidConfig, v.GetString("port"))
	}

	return &Config{
		Port:            port,
		Debug:           v.GetBool("debug"),
		LogLevel:        strings.TrimSpace(v.GetString("log_level")),
		ReadTimeout:     v.GetDuration("read_timeout"),
		WriteTimeout:    v.GetDuration("write_timeout"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		NotificationsFile: strings.TrimSpace(v.GetString("notifications_file")),
		WatchStorage:      v.GetBool("watch_storage"),

		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),

		ChannelRateLimit:  v.GetInt("channel_rate_limit"),
		SchedulerInterval: v.GetDuration("scheduler_interval"),
		Workers:           v.GetInt("workers"),
		AllowedSources:    sourcesOf(v),

		LogfilePath:     v.GetString("logfile_path"),
		TelegramToken:   v.GetString("telegram_token"),
		TelegramChatID:  v.GetString("telegram_chat_id"),
		TelegramBaseURL: v.GetString("telegram_base_url"),
		TelegramTimeout: v.GetDuration("telegram_timeout"),
		SMTP: SMTP{
			Addr:     v.GetString("smtp_addr"),
			User:     v.GetString("smtp_user"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("smtp_from"),
			To:       v.GetString("smtp_to"),
		},
	}, nil
}

// Validate checks ranges and formats. It is called by Load.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0..65535", ErrInvalidConfig, c.Port)
	}
	if !strings.HasSuffix(c.NotificationsFile, ".json") {
		return fmt.Errorf("%w: notifications file must have a .json extension", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.NotificationsFile, prohibitedPathSymbols) {
		return fmt.Errorf("%w: notifications file contains prohibited symbols: ? * : | < >", ErrInvalidConfig)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
		}
	}
	durations := map[string]time.Duration{
		"read_timeout":       c.ReadTimeout,
		"write_timeout":      c.WriteTimeout,
		"shutdown_timeout":   c.ShutdownTimeout,
		"rate_limit_window":  c.RateLimitWindow,
		"scheduler_interval": c.SchedulerInterval,
		"telegram_timeout":   c.TelegramTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.RateLimitRequests < 0 || c.ChannelRateLimit < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// TelegramEnabled reports whether both the bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// sourcesOf accepts a comma separated string (env, .env) or a native list
// (yaml, toml, json config files).
func sourcesOf(v *viper.Viper) []string {
	if raw, ok := v.Get("allowed_sources").(string); ok {
		return splitList(raw)
	}
	return splitList(strings.Join(v.GetStringSlice("allowed_sources"), ","))
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
