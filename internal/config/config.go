package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/takato23/lookescolar-sub001/internal/database"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Signer    SignerConfig    `mapstructure:"signer"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	MasterToken string        `mapstructure:"master_token"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// RateLimitConfig holds per-endpoint-class request limits. Counts are per
// window; the tagging limit is stricter because the endpoint mutates.
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	DecodeLimit   int           `mapstructure:"decode_limit"`
	TagLimit      int           `mapstructure:"tag_limit"`
	ValidateLimit int           `mapstructure:"validate_limit"`
}

// BatchConfig holds the hard batch ceilings per tagging workflow.
type BatchConfig struct {
	QRLimit    int `mapstructure:"qr_limit"`
	AdminLimit int `mapstructure:"admin_limit"`
}

type SignerConfig struct {
	Secret string        `mapstructure:"secret"`
	URLTTL time.Duration `mapstructure:"url_ttl"`
}

// RetentionConfig uses flexible duration strings (supports d and w suffixes).
type RetentionConfig struct {
	Tokens          string `mapstructure:"tokens"`
	Audit           string `mapstructure:"audit"`
	CleanupInterval string `mapstructure:"cleanup_interval"`
}

// RetentionDurations is RetentionConfig parsed into time.Durations.
type RetentionDurations struct {
	Tokens          time.Duration
	Audit           time.Duration
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath loads configuration from the given file path, falling back to
// the default search paths when path is empty.
func LoadWithPath(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "lookescolar")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.session_ttl", "12h")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", "logs/lookescolar.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("rate_limit.window", "1m")
	viper.SetDefault("rate_limit.decode_limit", 30)
	viper.SetDefault("rate_limit.tag_limit", 10)
	viper.SetDefault("rate_limit.validate_limit", 30)
	viper.SetDefault("batch.qr_limit", 50)
	viper.SetDefault("batch.admin_limit", 100)
	viper.SetDefault("signer.url_ttl", "15m")
	viper.SetDefault("retention.tokens", "90d")
	viper.SetDefault("retention.audit", "180d")
	viper.SetDefault("retention.cleanup_interval", "1h")

	// Read environment variables
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// ParseFlexibleDuration parses durations accepting the standard Go units plus
// d (days) and w (weeks).
func ParseFlexibleDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if strings.HasSuffix(s, "w") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "w"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// ParseRetentionDurations parses the retention config into durations.
func (c *Config) ParseRetentionDurations() (*RetentionDurations, error) {
	tokens, err := ParseFlexibleDuration(c.Retention.Tokens)
	if err != nil {
		return nil, fmt.Errorf("retention.tokens: %w", err)
	}
	audit, err := ParseFlexibleDuration(c.Retention.Audit)
	if err != nil {
		return nil, fmt.Errorf("retention.audit: %w", err)
	}
	interval, err := ParseFlexibleDuration(c.Retention.CleanupInterval)
	if err != nil {
		return nil, fmt.Errorf("retention.cleanup_interval: %w", err)
	}
	return &RetentionDurations{
		Tokens:          tokens,
		Audit:           audit,
		CleanupInterval: interval,
	}, nil
}

// ToDBConfig converts DatabaseConfig to database.Config
func (c DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}
