package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// Config holds all service settings, populated from an optional config.yaml
// and FLOODRISK_* environment variables. Environment wins over file; file
// wins over defaults.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Model     ModelConfig     `mapstructure:"model"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Elevation ElevationConfig `mapstructure:"elevation"`
}

// ModelConfig points the service at its bundle on disk.
type ModelConfig struct {
	BundlePath  string `mapstructure:"bundle_path"`
	WarmOnStart bool   `mapstructure:"warm_on_start"`
}

// RiskLevel is one severity band, most severe first. Rank comes from list
// position, so it is not configurable directly.
type RiskLevel struct {
	Name  string `mapstructure:"name"`
	Color string `mapstructure:"color"`
}

// RiskConfig carries the ordered severity scale. The list shape only fits
// the config file; environment overrides cover every other key.
type RiskConfig struct {
	Levels []RiskLevel `mapstructure:"levels"`
}

// KafkaConfig configures the optional streaming pipeline.
type KafkaConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Brokers            []string      `mapstructure:"brokers"`
	SourceTopic        string        `mapstructure:"source_topic"`
	SinkTopic          string        `mapstructure:"sink_topic"`
	GroupID            string        `mapstructure:"group_id"`
	BatchSize          int           `mapstructure:"batch_size"`
	BatchFlushInterval time.Duration `mapstructure:"batch_flush_interval"`
}

// ElevationConfig configures the optional terrain elevation lookup.
type ElevationConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/floodriskd")
	v.SetEnvPrefix("FLOODRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see env-only overrides
	// during Unmarshal.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("model.bundle_path", "data/model/flood_model.json")
	v.SetDefault("model.warm_on_start", true)

	v.SetDefault("risk.levels", []map[string]string{
		{"name": "Severe", "color": "#FF4B4B"},
		{"name": "Caution", "color": "#FFA500"},
		{"name": "Safe", "color": "#28A745"},
	})

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.source_topic", "station-readings")
	v.SetDefault("kafka.sink_topic", "flood-risk-classifications")
	v.SetDefault("kafka.group_id", "flood-risk-service")
	v.SetDefault("kafka.batch_size", 50)
	v.SetDefault("kafka.batch_flush_interval", "500ms")

	v.SetDefault("elevation.enabled", false)
	v.SetDefault("elevation.base_url", "https://api.open-meteo.com")
	v.SetDefault("elevation.timeout", "5s")
	v.SetDefault("elevation.cache_size", 1000)
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("FLOODRISK_HTTP_ADDR is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid FLOODRISK_SHUTDOWN_TIMEOUT")
	}
	if c.Model.BundlePath == "" {
		return errors.New("FLOODRISK_MODEL_BUNDLE_PATH is required")
	}
	if len(c.Risk.Levels) == 0 {
		return errors.New("risk.levels must name at least one level")
	}
	for i, level := range c.Risk.Levels {
		if level.Name == "" {
			return fmt.Errorf("risk.levels[%d] has no name", i)
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("FLOODRISK_KAFKA_BROKERS is required")
		}
		if c.Kafka.SourceTopic == "" {
			return errors.New("FLOODRISK_KAFKA_SOURCE_TOPIC is required")
		}
		if c.Kafka.SinkTopic == "" {
			return errors.New("FLOODRISK_KAFKA_SINK_TOPIC is required")
		}
		if c.Kafka.GroupID == "" {
			return errors.New("FLOODRISK_KAFKA_GROUP_ID is required")
		}
		if c.Kafka.BatchSize < 1 || c.Kafka.BatchSize > 1000 {
			return errors.New("FLOODRISK_KAFKA_BATCH_SIZE must be between 1 and 1000")
		}
		if c.Kafka.BatchFlushInterval <= 0 {
			return errors.New("invalid FLOODRISK_KAFKA_BATCH_FLUSH_INTERVAL")
		}
	}
	if c.Elevation.Enabled {
		if c.Elevation.BaseURL == "" {
			return errors.New("FLOODRISK_ELEVATION_BASE_URL is required")
		}
		if c.Elevation.Timeout <= 0 {
			return errors.New("invalid FLOODRISK_ELEVATION_TIMEOUT")
		}
		if c.Elevation.CacheSize < 1 {
			return errors.New("FLOODRISK_ELEVATION_CACHE_SIZE must be positive")
		}
	}
	return nil
}

// SeverityScale converts the configured levels into the domain scale, with
// rank assigned from list position.
func (c *Config) SeverityScale() domain.SeverityScale {
	scale := make(domain.SeverityScale, len(c.Risk.Levels))
	for i, level := range c.Risk.Levels {
		scale[i] = domain.RiskCategory{
			Rank:  i,
			Name:  level.Name,
			Color: level.Color,
		}
	}
	return scale
}
