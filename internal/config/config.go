package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is set at build time with
// -ldflags "-X github.com/ygggate/ygggate/internal/config.Version=...".
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Site         SiteConfig         `mapstructure:"site" yaml:"site"`
	Account      AccountConfig      `mapstructure:"account" yaml:"account"`
	FlareSolverr FlareSolverrConfig `mapstructure:"flaresolverr" yaml:"flaresolverr"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit" yaml:"ratelimit"`
	Download     DownloadConfig     `mapstructure:"download" yaml:"download"`
	TMDB         TMDBConfig         `mapstructure:"tmdb" yaml:"tmdb"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler" yaml:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SiteConfig locates the origin site.
type SiteConfig struct {
	Domain string `mapstructure:"domain" yaml:"domain"`
	// LeakedIP is dialed for Domain instead of its public DNS answer.
	LeakedIP string `mapstructure:"leaked_ip" yaml:"leaked_ip"`
	// OwnIP is announced in CF-Connecting-IP / X-Forwarded-For.
	OwnIP      string        `mapstructure:"own_ip" yaml:"own_ip"`
	SessionDir string        `mapstructure:"session_dir" yaml:"session_dir"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AccountConfig holds the origin credentials of the shared session.
type AccountConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// UseSessions persists session cookies across restarts.
	UseSessions bool `mapstructure:"use_sessions" yaml:"use_sessions"`
}

// FlareSolverrConfig enables the browser-automation login strategy when URL is set.
type FlareSolverrConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	MaxTimeout time.Duration `mapstructure:"max_timeout" yaml:"max_timeout"`
}

// RateLimitConfig bounds traffic to the origin.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
	MaxConcurrent     int64   `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// DownloadConfig tunes the download protocol.
type DownloadConfig struct {
	Turbo    bool          `mapstructure:"turbo" yaml:"turbo"`
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// TMDBConfig enables external-ID searches when Token is set.
type TMDBConfig struct {
	Token   string        `mapstructure:"token" yaml:"token"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SchedulerConfig holds background job schedules.
type SchedulerConfig struct {
	KeepaliveCron string `mapstructure:"keepalive_cron" yaml:"keepalive_cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8715,
		},
		Database: DatabaseConfig{
			Path: "./data/ygggate.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Site: SiteConfig{
			Domain:     "www.yggtorrent.top",
			SessionDir: "./data/sessions",
			Timeout:    30 * time.Second,
		},
		Account: AccountConfig{
			UseSessions: true,
		},
		FlareSolverr: FlareSolverrConfig{
			MaxTimeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             3,
			MaxConcurrent:     4,
		},
		Download: DownloadConfig{
			Cooldown: 30 * time.Second,
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			KeepaliveCron: "*/30 * * * *",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ygggate")
	}

	v.SetEnvPrefix("YGGGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("site.domain", d.Site.Domain)
	v.SetDefault("site.leaked_ip", d.Site.LeakedIP)
	v.SetDefault("site.own_ip", d.Site.OwnIP)
	v.SetDefault("site.session_dir", d.Site.SessionDir)
	v.SetDefault("site.timeout", d.Site.Timeout)

	v.SetDefault("account.username", d.Account.Username)
	v.SetDefault("account.password", d.Account.Password)
	v.SetDefault("account.use_sessions", d.Account.UseSessions)

	v.SetDefault("flaresolverr.url", d.FlareSolverr.URL)
	v.SetDefault("flaresolverr.max_timeout", d.FlareSolverr.MaxTimeout)

	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)
	v.SetDefault("ratelimit.max_concurrent", d.RateLimit.MaxConcurrent)

	v.SetDefault("download.turbo", d.Download.Turbo)
	v.SetDefault("download.cooldown", d.Download.Cooldown)

	v.SetDefault("tmdb.token", d.TMDB.Token)
	v.SetDefault("tmdb.base_url", d.TMDB.BaseURL)
	v.SetDefault("tmdb.timeout", d.TMDB.Timeout)

	v.SetDefault("scheduler.keepalive_cron", d.Scheduler.KeepaliveCron)
}

// Validate rejects configurations the gateway cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Site.Domain) == "" {
		errs = append(errs, errors.New("site.domain is required"))
	}
	if c.Account.Username == "" || c.Account.Password == "" {
		errs = append(errs, errors.New("account.username and account.password are required"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("ratelimit.requests_per_second must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("ratelimit.burst must be positive"))
	}
	if c.RateLimit.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("ratelimit.max_concurrent must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// YAML renders c as a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
