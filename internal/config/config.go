// Package config loads bm settings from ~/.config/bm/config.yaml and BM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nikbrunner/bmsync/internal/auth"
)

const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	Backend string        `mapstructure:"backend" validate:"oneof=local memory redis sqlite"`
	Local   LocalConfig   `mapstructure:"local"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Rewrite RewriteConfig `mapstructure:"rewrite"`
	Cull    CullConfig    `mapstructure:"cull"`
	Log     LogConfig     `mapstructure:"log"`
}

type LocalConfig struct {
	Format string `mapstructure:"format" validate:"oneof=kv json"`
	Path   string `mapstructure:"path"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db" validate:"gte=0"`
	PoolSize       int           `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	RetryInterval  time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
	MaxWait        time.Duration `mapstructure:"max_wait" validate:"gt=0"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout" validate:"gt=0"`
}

type SyncConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gt=0"`
	Live     bool          `mapstructure:"live"`
	Poll     time.Duration `mapstructure:"poll" validate:"gt=0"`
}

type AuthConfig struct {
	Secret     string         `mapstructure:"secret"`
	TTL        time.Duration  `mapstructure:"ttl" validate:"gt=0"`
	SessionDir string         `mapstructure:"session_dir"`
	Accounts   []auth.Account `mapstructure:"accounts"`
}

type RewriteConfig struct {
	Bolt bool `mapstructure:"bolt"`
}

type CullConfig struct {
	ExcludeDomains []string      `mapstructure:"exclude_domains"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gt=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// Remote reports whether the configured backend is a document store.
func (c *Config) Remote() bool {
	return c.Backend != BackendLocal
}

// DefaultDir returns the default config directory: ~/.config/bm
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("backend", BackendLocal)
	v.SetDefault("local.format", "kv")
	v.SetDefault("local.path", "")
	v.SetDefault("sqlite.path", filepath.Join(dir, "bm.db"))

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.connect_timeout", 30*time.Second)
	v.SetDefault("redis.retry_interval", 2*time.Second)
	v.SetDefault("redis.max_wait", 10*time.Second)
	v.SetDefault("redis.ping_timeout", 2*time.Second)

	v.SetDefault("sync.debounce", time.Second)
	v.SetDefault("sync.live", true)
	v.SetDefault("sync.poll", 2*time.Second)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.ttl", auth.DefaultTTL)
	v.SetDefault("auth.session_dir", filepath.Join(dir, "session"))

	v.SetDefault("rewrite.bolt", false)

	v.SetDefault("cull.exclude_domains", []string{"github.com", "gitlab.com"})
	v.SetDefault("cull.concurrency", 10)
	v.SetDefault("cull.timeout", 10*time.Second)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.pretty", true)
}

// Load reads the config file at path, or config.yaml in the default
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix("BM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.resolvePaths(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	if c.Local.Path == "" {
		if c.Local.Format == "json" {
			c.Local.Path = filepath.Join(dir, "bookmarks.json")
		} else {
			c.Local.Path = filepath.Join(dir, "data")
		}
	}
	c.Local.Path = expandHome(c.Local.Path)
	c.SQLite.Path = expandHome(c.SQLite.Path)
	c.Auth.SessionDir = expandHome(c.Auth.SessionDir)
}

var validate = validator.New()

// Validate checks field ranges and the settings each backend needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Remote() && c.Auth.Secret == "" {
		return fmt.Errorf("invalid config: auth.secret is required for backend %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required")
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
