// Package config loads runtime settings from flags, environment variables
// and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. REQUISITIONS_DB or
// REQUISITIONS_REDIS_ADDR.
const EnvPrefix = "REQUISITIONS"

// Config holds all service configuration.
type Config struct {
	DB              string        `mapstructure:"db"`
	Addr            string        `mapstructure:"addr"`
	Log             string        `mapstructure:"log"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	LoginRatePerMin int           `mapstructure:"login_rate_per_min"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures cross-instance event relay. Relay is off when Addr
// is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "requisitions.sqlite3")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("login_rate_per_min", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "requisitions:events")
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"db":              "db",
	"log":             "log",
	"addr":            "addr",
	"token-ttl":       "token_ttl",
	"request-timeout": "request_timeout",
	"login-rate":      "login_rate_per_min",
	"redis-addr":      "redis.addr",
	"redis-channel":   "redis.channel",
}

// NewFlagSet returns a flag set with the flags every command shares.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "config file (default: ./requisitions.yaml if present)")
	fs.StringP("db", "d", "requisitions.sqlite3", "SQLite database path")
	fs.StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	return fs
}

// AddServeFlags adds the flags only the server needs.
func AddServeFlags(fs *pflag.FlagSet) {
	fs.StringP("addr", "a", ":8080", "listen address")
	fs.Duration("token-ttl", 24*time.Hour, "lifetime of issued tokens")
	fs.Duration("request-timeout", 30*time.Second, "per-request handler timeout")
	fs.Int("login-rate", 10, "login attempts allowed per minute per client")
	fs.String("redis-addr", "", "Redis address for relaying events between instances")
	fs.String("redis-channel", "requisitions:events", "Redis channel for events")
}

// Load parses args into fs and resolves the configuration.
// It returns pflag.ErrHelp if help was requested.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("requisitions")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB == "" {
		return fmt.Errorf("db path required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.LoginRatePerMin <= 0 {
		return fmt.Errorf("login_rate_per_min must be positive")
	}
	return nil
}
