package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" yaml:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Security      SecurityConfig      `mapstructure:"security" yaml:"security"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap" yaml:"bootstrap"`
	Game          GameConfig          `mapstructure:"game" yaml:"game"`
	Backup        BackupConfig        `mapstructure:"backup" yaml:"backup"`
	Notify        NotifyConfig        `mapstructure:"notify" yaml:"notify"`
	Status        StatusConfig        `mapstructure:"status" yaml:"status"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" yaml:"port"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	Source          string        `mapstructure:"source" yaml:"source"`
}

type SecurityConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	BCryptCost      int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
	StreamSecret    string        `mapstructure:"stream_secret" yaml:"stream_secret"`
	StreamTicketTTL time.Duration `mapstructure:"stream_ticket_ttl" yaml:"stream_ticket_ttl"`
	CookieSecure    bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`
}

type BootstrapConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

type GameConfig struct {
	Dir                string        `mapstructure:"dir" yaml:"dir"`
	Launcher           string        `mapstructure:"launcher" yaml:"launcher"`
	Executable         string        `mapstructure:"executable" yaml:"executable"`
	Args               []string      `mapstructure:"args" yaml:"args"`
	Env                []string      `mapstructure:"env" yaml:"env"`
	Signature          string        `mapstructure:"signature" yaml:"signature"`
	LogFile            string        `mapstructure:"log_file" yaml:"log_file"`
	LoaderLogFile      string        `mapstructure:"loader_log_file" yaml:"loader_log_file"`
	ConfigFile         string        `mapstructure:"config_file" yaml:"config_file"`
	SavesDir           string        `mapstructure:"saves_dir" yaml:"saves_dir"`
	RestartSettleDelay time.Duration `mapstructure:"restart_settle_delay" yaml:"restart_settle_delay"`
	StopTimeout        time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	StopPollInterval   time.Duration `mapstructure:"stop_poll_interval" yaml:"stop_poll_interval"`
	StartGrace         time.Duration `mapstructure:"start_grace" yaml:"start_grace"`
}

type BackupConfig struct {
	Dir    string       `mapstructure:"dir" yaml:"dir"`
	Mirror MirrorConfig `mapstructure:"mirror" yaml:"mirror"`
}

type MirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

type NotifyConfig struct {
	Workers      int            `mapstructure:"workers" yaml:"workers"`
	QueueSize    int            `mapstructure:"queue_size" yaml:"queue_size"`
	Timeout      time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	ThumbnailURL string         `mapstructure:"thumbnail_url" yaml:"thumbnail_url"`
	FooterText   string         `mapstructure:"footer_text" yaml:"footer_text"`
	Identity     IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

type IdentityConfig struct {
	APIBase  string `mapstructure:"api_base" yaml:"api_base"`
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
}

type StatusConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// DefaultConfig returns a configuration that runs a local sqlite store next
// to a Techtonica dedicated server install under wine.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              3000,
			AllowedOrigins:    "*",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      90 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Source:          "file:data/admin.db",
		},
		Security: SecurityConfig{
			SessionTTL:      7 * 24 * time.Hour,
			BCryptCost:      12,
			StreamTicketTTL: time.Minute,
		},
		Bootstrap: BootstrapConfig{
			Username: "admin",
		},
		Game: GameConfig{
			Dir:        "/home/techtonica/server",
			Launcher:   "wine",
			Executable: "Techtonica.exe",
			Args:       []string{"-batchmode", "-nographics"},
			Env: []string{
				"WINEPREFIX=/home/techtonica/.wine",
				"WINEDLLOVERRIDES=winhttp=n,b",
				"DISPLAY=:99",
			},
			Signature:          `Techtonica\.exe.*-batchmode`,
			LogFile:            "/home/techtonica/server/server.log",
			LoaderLogFile:      "/home/techtonica/server/BepInEx/LogOutput.log",
			ConfigFile:         "/home/techtonica/server/BepInEx/config/com.community.techtonicadedicatedserver.cfg",
			SavesDir:           "/home/techtonica/saves",
			RestartSettleDelay: 3 * time.Second,
			StopTimeout:        30 * time.Second,
			StopPollInterval:   500 * time.Millisecond,
			StartGrace:         20 * time.Second,
		},
		Backup: BackupConfig{
			Dir: "/home/techtonica/backups",
		},
		Notify: NotifyConfig{
			Workers:      4,
			QueueSize:    100,
			Timeout:      10 * time.Second,
			ThumbnailURL: "https://cdn.cloudflare.steamstatic.com/steam/apps/1457320/header.jpg",
			FooterText:   "Techtonica Server",
			Identity: IdentityConfig{
				APIBase: "https://discord.com/api/v10",
			},
		},
		Status: StatusConfig{
			Interval: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:      "info",
				Format:     "text",
				MaxSizeMB:  50,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
		},
	}
}

// LoadConfigFromEnv builds the config from environment variables for
// container deployments, starting from DefaultConfig.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.Source = getEnv("DATABASE_URL", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Security.SessionTTL = getEnvAsDuration("SESSION_TTL", cfg.Security.SessionTTL)
	cfg.Security.BCryptCost = getEnvAsInt("BCRYPT_COST", cfg.Security.BCryptCost)
	cfg.Security.StreamSecret = getEnv("STREAM_SECRET", cfg.Security.StreamSecret)
	cfg.Security.CookieSecure = getEnvAsBool("COOKIE_SECURE", cfg.Security.CookieSecure)

	cfg.Bootstrap.Username = getEnv("ADMIN_USERNAME", cfg.Bootstrap.Username)
	cfg.Bootstrap.Password = getEnv("ADMIN_PASSWORD", cfg.Bootstrap.Password)

	cfg.Game.Dir = getEnv("SERVER_DIR", cfg.Game.Dir)
	cfg.Game.SavesDir = getEnv("SAVES_DIR", cfg.Game.SavesDir)
	cfg.Game.ConfigFile = getEnv("SERVER_CONFIG_FILE", cfg.Game.ConfigFile)
	cfg.Game.LogFile = getEnv("SERVER_LOG_FILE", cfg.Game.LogFile)
	cfg.Game.StartGrace = getEnvAsDuration("START_GRACE", cfg.Game.StartGrace)
	cfg.Game.LoaderLogFile = getEnv("LOADER_LOG_FILE", cfg.Game.LoaderLogFile)

	cfg.Backup.Dir = getEnv("BACKUP_DIR", cfg.Backup.Dir)
	cfg.Backup.Mirror.Enabled = getEnvAsBool("BACKUP_MIRROR_ENABLED", cfg.Backup.Mirror.Enabled)
	cfg.Backup.Mirror.Endpoint = getEnv("BACKUP_MIRROR_ENDPOINT", cfg.Backup.Mirror.Endpoint)
	cfg.Backup.Mirror.AccessKey = getEnv("BACKUP_MIRROR_ACCESS_KEY", cfg.Backup.Mirror.AccessKey)
	cfg.Backup.Mirror.SecretKey = getEnv("BACKUP_MIRROR_SECRET_KEY", cfg.Backup.Mirror.SecretKey)
	cfg.Backup.Mirror.Bucket = getEnv("BACKUP_MIRROR_BUCKET", cfg.Backup.Mirror.Bucket)
	cfg.Backup.Mirror.UseSSL = getEnvAsBool("BACKUP_MIRROR_USE_SSL", cfg.Backup.Mirror.UseSSL)

	cfg.Notify.Identity.BotToken = getEnv("DISCORD_BOT_TOKEN", cfg.Notify.Identity.BotToken)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "json")
	cfg.Observability.Logging.File = getEnv("LOG_FILE", cfg.Observability.Logging.File)

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Game.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("game config: %v", err))
	}

	if err := c.Backup.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("backup config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return strings.TrimSpace(c.Source)
}

func (c *SecurityConfig) Validate() error {
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	if c.StreamSecret != "" && len(c.StreamSecret) < 32 {
		return errors.New("stream_secret must be at least 32 characters")
	}
	return nil
}

func (c *GameConfig) Validate() error {
	if c.Dir == "" || c.Executable == "" {
		return errors.New("dir and executable are required")
	}
	if c.Signature == "" {
		return errors.New("signature is required")
	}
	if c.ConfigFile == "" || c.SavesDir == "" {
		return errors.New("config_file and saves_dir are required")
	}
	if c.RestartSettleDelay < 0 || c.StopTimeout < 0 || c.StartGrace < 0 {
		return errors.New("restart_settle_delay, stop_timeout and start_grace must not be negative")
	}
	return nil
}

func (c *BackupConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	if c.Mirror.Enabled && (c.Mirror.Endpoint == "" || c.Mirror.Bucket == "") {
		return errors.New("mirror endpoint and bucket are required when mirroring is enabled")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
