// Package config loads tabsplit configuration from defaults, an optional
// YAML file and TABSPLIT_* environment variables, in that order.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/mmynk/tabsplit/pkg/logging"
)

const (
	// EnvPrefix prefixes every environment override, e.g. TABSPLIT_SERVER_PORT.
	EnvPrefix = "TABSPLIT_"
	// PathEnv names the variable holding the config file path.
	PathEnv = EnvPrefix + "CONFIG_PATH"
)

// Config defines application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Log    LogConfig    `koanf:"log"`
	Auth   AuthConfig   `koanf:"auth"`
	Share  ShareConfig  `koanf:"share"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig enables bearer-token auth on the HTTP API when Secret is set.
type AuthConfig struct {
	Secret   string        `koanf:"secret"`
	TokenTTL time.Duration `koanf:"tokenTTL"`
}

// ShareConfig controls the plain-text share rendering.
type ShareConfig struct {
	Title              string `koanf:"title"`
	CurrencySymbol     string `koanf:"currencySymbol"`
	DecimalSeparator   string `koanf:"decimalSeparator"`
	ThousandsSeparator string `koanf:"thousandsSeparator"`
	TipLabel           string `koanf:"tipLabel"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "./data/tabsplit.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		Share: ShareConfig{
			Title:              "Divisão de conta",
			CurrencySymbol:     "R$",
			DecimalSeparator:   ",",
			ThousandsSeparator: ".",
			TipLabel:           "Gorjeta",
		},
	}
}

// Load reads configuration. path may be empty, in which case TABSPLIT_CONFIG_PATH
// is consulted; with neither set only defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// TABSPLIT_SERVER_PORT -> server.port
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ToLower(strings.ReplaceAll(key, "_", ".")), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			// Env keys arrive lower-cased
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return errors.New("db path is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log config")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return errors.Errorf("unknown log format: %s", c.Log.Format)
	}
	if c.Auth.Secret != "" && c.Auth.TokenTTL <= 0 {
		return errors.New("auth tokenTTL must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
