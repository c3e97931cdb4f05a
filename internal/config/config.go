package config

import (
	"errors"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Fields FieldsConfig `yaml:"fields" mapstructure:"fields"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig points at the remote organisation lookup service.
type APIConfig struct {
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	LookupPath          string  `yaml:"lookup_path" mapstructure:"lookup_path"`
	AutocompletePath    string  `yaml:"autocomplete_path" mapstructure:"autocomplete_path"`
	ProposePath         string  `yaml:"propose_path" mapstructure:"propose_path"`
	FallbackProposePath string  `yaml:"fallback_propose_path" mapstructure:"fallback_propose_path"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	UserAgent           string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// EnrichConfig configures the fingerprint lookup and rebuild pipeline.
type EnrichConfig struct {
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	HashLength   int    `yaml:"hash_length" mapstructure:"hash_length"`
	OutputSuffix string `yaml:"output_suffix" mapstructure:"output_suffix"`
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`
}

// CacheConfig configures the lookup response cache.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the wizard HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxSessions    int      `yaml:"max_sessions" mapstructure:"max_sessions"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// FieldsConfig points at an optional field catalogue file.
type FieldsConfig struct {
	CataloguePath string `yaml:"catalogue_path" mapstructure:"catalogue_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and ORGID_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORGID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "https://findthatcharity.uk")
	v.SetDefault("api.lookup_path", "/hash")
	v.SetDefault("api.autocomplete_path", "/autocomplete")
	v.SetDefault("api.propose_path", "/reconcile/propose_properties")
	v.SetDefault("api.fallback_propose_path", "/propose_properties")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.requests_per_second", 0)
	v.SetDefault("api.user_agent", "orgid-cli/1.0")
	v.SetDefault("enrich.concurrency", 8)
	v.SetDefault("enrich.hash_length", 4)
	v.SetDefault("enrich.output_suffix", "-geo")
	v.SetDefault("enrich.max_attempts", 1)
	v.SetDefault("enrich.encoding", "")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "orgid.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_sessions", 64)
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("fields.catalogue_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command name
// ("enrich", "serve", "search", ...); unknown modes only get the common checks.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required")
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "api.base_url must be an absolute URL")
	}

	switch mode {
	case "enrich", "serve":
		if c.Enrich.Concurrency < 1 {
			problems = append(problems, "enrich.concurrency must be at least 1")
		}
		if c.Enrich.HashLength < 1 || c.Enrich.HashLength > 32 {
			problems = append(problems, "enrich.hash_length must be between 1 and 32")
		}
		switch c.Store.Driver {
		case "sqlite", "postgres", "none":
		default:
			problems = append(problems, "store.driver must be sqlite, postgres or none")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.MaxSessions < 1 {
			problems = append(problems, "server.max_sessions must be at least 1")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
