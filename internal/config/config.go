// Package config loads server settings from a YAML file, the environment
// and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/notify"
)

// Config keys. Each is also a flag name and, upper-cased with the
// NAJDENO_ prefix, an environment variable.
const (
	KeyDB          = "db"
	KeyAddr        = "addr"
	KeyLog         = "log"
	KeyAdminUser   = "admin_user"
	KeyNotifyQueue = "notify_queue"
	KeyCacheTTL    = "cache_ttl"
	KeyCacheSize   = "cache_size"
	KeyTokenTTL    = "token_ttl"
)

const (
	envPrefix  = "NAJDENO"
	configName = "najdeno"
	configType = "yaml"
)

// Config holds the resolved settings.
type Config struct {
	DB          string
	Addr        string
	Log         string
	AdminUser   string
	NotifyQueue int
	CacheTTL    time.Duration
	CacheSize   int
	TokenTTL    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDB, "najdeno.sqlite3")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLog, "")
	v.SetDefault(KeyAdminUser, "admin")
	v.SetDefault(KeyNotifyQueue, notify.DefaultQueueSize)
	v.SetDefault(KeyCacheTTL, 5*time.Minute)
	v.SetDefault(KeyCacheSize, 1024)
	v.SetDefault(KeyTokenTTL, auth.DefaultTTL)
}

// Load resolves the configuration. Precedence, highest first: flags that
// were set, NAJDENO_* environment variables (a .env file in the working
// directory is read into the environment first), najdeno.yaml in
// configDir, defaults. A missing .env or config file is not an error.
func Load(configDir string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	if flags != nil {
		for _, key := range []string{KeyDB, KeyAddr, KeyLog, KeyAdminUser, KeyNotifyQueue, KeyCacheTTL, KeyCacheSize, KeyTokenTTL} {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := &Config{
		DB:          v.GetString(KeyDB),
		Addr:        v.GetString(KeyAddr),
		Log:         v.GetString(KeyLog),
		AdminUser:   v.GetString(KeyAdminUser),
		NotifyQueue: v.GetInt(KeyNotifyQueue),
		CacheTTL:    v.GetDuration(KeyCacheTTL),
		CacheSize:   v.GetInt(KeyCacheSize),
		TokenTTL:    v.GetDuration(KeyTokenTTL),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DB == "":
		return errors.New("config: db path is empty")
	case c.Addr == "":
		return errors.New("config: listen address is empty")
	case c.AdminUser == "":
		return errors.New("config: admin user is empty")
	case c.TokenTTL <= 0:
		return fmt.Errorf("config: token_ttl must be positive, got %s", c.TokenTTL)
	case c.CacheTTL < 0 || c.CacheSize < 0 || c.NotifyQueue < 0:
		return errors.New("config: cache and queue sizes must not be negative")
	}
	return nil
}

// flagName maps a config key to its flag: admin_user becomes admin-user.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// RegisterFlags adds a flag for every config key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(flagName(KeyDB), "d", "najdeno.sqlite3", "SQLite database path")
	fs.StringP(flagName(KeyAddr), "a", ":8080", "listen address")
	fs.StringP(flagName(KeyLog), "l", "", "log file path (default: stdout/stderr only)")
	fs.StringP(flagName(KeyAdminUser), "u", "admin", "admin username on first run")
	fs.Int(flagName(KeyNotifyQueue), notify.DefaultQueueSize, "notification queue size")
	fs.Duration(flagName(KeyCacheTTL), 5*time.Minute, "read cache entry lifetime (0 disables the cache)")
	fs.Int(flagName(KeyCacheSize), 1024, "read cache capacity (0 disables the cache)")
	fs.Duration(flagName(KeyTokenTTL), auth.DefaultTTL, "login token lifetime")
}
