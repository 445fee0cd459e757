package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const EnvPrefix = "SITE_REPORT"

const (
	BlobBackendDuckDB = "duckdb"
	BlobBackendS3     = "s3"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Blob     BlobConfig     `mapstructure:"blob"`
	TextAPI  APIConfig      `mapstructure:"text_api"`
	Mail     APIConfig      `mapstructure:"mail"`
	Undo     UndoConfig     `mapstructure:"undo"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path" validate:"required"`
	Threads int    `mapstructure:"threads" validate:"min=0"`
}

type BlobConfig struct {
	Backend string   `mapstructure:"backend" validate:"oneof=duckdb s3"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

// APIConfig points at an external HTTP collaborator. An empty BaseURL
// disables it.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
}

type UndoConfig struct {
	Window time.Duration `mapstructure:"window" validate:"min=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds the process logger. Pretty output is meant for a terminal.
func (c LogConfig) NewLogger(w io.Writer) zerolog.Logger {
	if c.Pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "site-report.db")
	v.SetDefault("database.threads", 4)
	v.SetDefault("blob.backend", BlobBackendDuckDB)
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.prefix", "site-report")
	v.SetDefault("text_api.base_url", "")
	v.SetDefault("text_api.timeout", 60*time.Second)
	v.SetDefault("mail.base_url", "")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("undo.window", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads the optional .env file, then the YAML file at path (when not
// empty) and finally SITE_REPORT_* environment variables, e.g.
// SITE_REPORT_DATABASE_PATH overrides database.path.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Backend == BlobBackendS3 && c.Blob.S3.Bucket == "" {
		return errors.New("invalid config: blob.s3.bucket is required for the s3 backend")
	}
	return nil
}
