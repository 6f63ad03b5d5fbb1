package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/payqr/payqr/database"
	payqrhttp "github.com/payqr/payqr/http"
	"github.com/payqr/payqr/tokenstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for payqr.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Database database.Config      `mapstructure:"database"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Audit    AuditConfig          `mapstructure:"audit"`
	CORS     payqrhttp.CORSConfig `mapstructure:"cors"`
	Codec    CodecConfig          `mapstructure:"codec"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	TLSCert string `mapstructure:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey  string `mapstructure:"tls_key" validate:"required_with=TLSCert"`
	Console bool   `mapstructure:"console"`
}

// AuthConfig selects where bearer tokens come from. Source "config" reads
// tokens from this file (and the optional tokens file); source "database"
// serves them from the token table.
type AuthConfig struct {
	Source string                  `mapstructure:"source" validate:"required,oneof=config database"`
	Tokens tokenstore.TokensConfig `mapstructure:"tokens"`
}

// AuditConfig selects the access log backend. Backend "database" keeps
// records next to the other tables; backend "file" appends JSON lines to
// the configured path.
type AuditConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=database file"`
	File    string `mapstructure:"file" validate:"required_if=Backend file"`
}

// CodecConfig holds payment code rendering configuration.
type CodecConfig struct {
	Size          int    `mapstructure:"size" validate:"min=0,max=4096"`
	RecoveryLevel string `mapstructure:"recovery_level" validate:"omitempty,oneof=low medium high highest"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":     "database.type",
	"db-dsn":      "database.dsn",
	"port":        "server.port",
	"console":     "server.console",
	"auth-source": "auth.source",
	"tokens-file": "auth.tokens.file",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.console", true)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "payqr.db")
	v.SetDefault("database.tables.tokens", "payqr_tokens")
	v.SetDefault("database.tables.access_log", "payqr_access_log")
	v.SetDefault("database.tables.templates", "payqr_templates")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.source", "config")

	v.SetDefault("audit.backend", "database")

	v.SetDefault("codec.size", 256)
	v.SetDefault("codec.recovery_level", "medium")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PAYQR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
