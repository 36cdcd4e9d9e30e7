package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "PREVENTIVI"

const (
	StoreEmbedded = "embedded"
	StoreRemote   = "remote"
)

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Trash  TrashConfig
	Images ImageConfig
}

type AppConfig struct {
	LogLevel     string `envconfig:"PREVENTIVI_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PREVENTIVI_LOG_FORMAT" default:"json"`
	StaticDir    string `envconfig:"PREVENTIVI_STATIC_DIR" default:"./static"`
	Seed         bool   `envconfig:"PREVENTIVI_SEED" default:"true"`
	SeedPassword string `envconfig:"PREVENTIVI_SEED_PASSWORD"`
}

type StoreConfig struct {
	Kind     string `envconfig:"PREVENTIVI_STORE" default:"embedded"`
	DBDriver string `envconfig:"PREVENTIVI_DB_DRIVER" default:"postgres"`
	DBDSN    string `envconfig:"PREVENTIVI_DB_DSN"`
}

type TrashConfig struct {
	Retention     time.Duration `envconfig:"PREVENTIVI_TRASH_RETENTION" default:"720h"`
	PurgeSchedule string        `envconfig:"PREVENTIVI_PURGE_SCHEDULE" default:"30 3 * * *"`
}

type ImageConfig struct {
	FetchTimeout   time.Duration `envconfig:"PREVENTIVI_IMAGE_FETCH_TIMEOUT" default:"10s"`
	UploadMaxBytes int64         `envconfig:"PREVENTIVI_UPLOAD_MAX_BYTES" default:"8388608"`
	MaxDimension   int           `envconfig:"PREVENTIVI_UPLOAD_MAX_DIMENSION" default:"2000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	switch c.Store.Kind {
	case StoreEmbedded:
	case StoreRemote:
		switch c.Store.DBDriver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported %s_DB_DRIVER %q", EnvPrefix, c.Store.DBDriver)
		}
		if strings.TrimSpace(c.Store.DBDSN) == "" {
			return fmt.Errorf("%s_DB_DSN is required when %s_STORE=remote", EnvPrefix, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported %s_STORE %q", EnvPrefix, c.Store.Kind)
	}
	if c.Trash.Retention <= 0 {
		return fmt.Errorf("%s_TRASH_RETENTION must be positive", EnvPrefix)
	}
	if c.Images.UploadMaxBytes <= 0 {
		return fmt.Errorf("%s_UPLOAD_MAX_BYTES must be positive", EnvPrefix)
	}
	return nil
}

// Remote reports whether quotes are kept in the external relational database.
func (c *Config) Remote() bool {
	return c.Store.Kind == StoreRemote
}
