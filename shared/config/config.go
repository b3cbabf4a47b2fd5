package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	ImageModeURL    = "url"
	ImageModeDisk   = "disk"
	ImageModeGridFS = "gridfs"
	ImageModeS3     = "s3"
)

// Config represents the server configuration
type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		Mongo  struct {
			URI               string `yaml:"uri"`
			Database          string `yaml:"database"`
			Collection        string `yaml:"collection"`
			PasswordSecretARN string `yaml:"password_secret_arn"`
			Region            string `yaml:"region"`
		} `yaml:"mongo"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"database"`
	Images struct {
		Mode         string `yaml:"mode"`
		Dir          string `yaml:"dir"`
		Bucket       string `yaml:"bucket"`
		MaxSizeBytes int64  `yaml:"max_size_bytes"`
		S3           struct {
			Bucket string `yaml:"bucket"`
			Region string `yaml:"region"`
			Prefix string `yaml:"prefix"`
		} `yaml:"s3"`
	} `yaml:"images"`
	Cache struct {
		RedisAddress string        `yaml:"redis_address"`
		TTL          time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, then validates the result. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.Database.Mongo.URI = uri
	}
	if path := os.Getenv("SQLITE_DB_PATH"); path != "" {
		cfg.Database.SQLite.Path = path
	}
	if mode := os.Getenv("IMAGE_MODE"); mode != "" {
		cfg.Images.Mode = mode
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		cfg.Cache.RedisAddress = addr
	}
	return nil
}

// applyDefaults sets default values for the configuration
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Mongo.URI == "" {
		cfg.Database.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Database.Mongo.Database == "" {
		cfg.Database.Mongo.Database = "test"
	}
	if cfg.Database.Mongo.Collection == "" {
		cfg.Database.Mongo.Collection = "movies"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "./movies.db"
	}
	if cfg.Images.Mode == "" {
		cfg.Images.Mode = ImageModeDisk
	}
	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "./images"
	}
	if cfg.Images.Bucket == "" {
		cfg.Images.Bucket = "images"
	}
	if cfg.Images.MaxSizeBytes == 0 {
		cfg.Images.MaxSizeBytes = 10 << 20
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that the selected driver and image mode can work together.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Images.Mode {
	case ImageModeURL, ImageModeDisk:
	case ImageModeGridFS:
		if c.Database.Driver != DriverMongo {
			return fmt.Errorf("image mode %q requires the %q driver", ImageModeGridFS, DriverMongo)
		}
	case ImageModeS3:
		if c.Images.S3.Bucket == "" {
			return fmt.Errorf("image mode %q requires images.s3.bucket", ImageModeS3)
		}
	default:
		return fmt.Errorf("unknown image mode %q", c.Images.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Images.MaxSizeBytes < 0 {
		return fmt.Errorf("images.max_size_bytes must not be negative")
	}

	return nil
}
