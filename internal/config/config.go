// Package config implements the boot configuration loader (SPEC_FULL.md
// AMBIENT STACK "Configuration"), grounded on
// orion-prototipe/internal/config/config.go and validator.go: a plain
// yaml-tagged struct tree loaded with os.ReadFile + yaml.Unmarshal,
// followed by a separate Validate pass.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/care/orion/internal/apperr"
	"github.com/care/orion/internal/types"
)

// EngineConfig holds the Inference Engine's boot parameters.
type EngineConfig struct {
	WorkerCount    int `yaml:"worker_count"`
	PhysicalCores  int `yaml:"physical_cores"`
	QueueCapacity  int `yaml:"queue_capacity"`
}

// CacheConfig holds the Rolling Image Cache's boot parameters.
type CacheConfig struct {
	WindowSeconds     int   `yaml:"window_seconds"`
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes"`
	PreviewWidth      int   `yaml:"preview_width"`
	JPEGQuality       int   `yaml:"jpeg_quality"`
}

// MQTTConfig holds the result-publisher's boot parameters.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Config is the top-level boot configuration.
type Config struct {
	InstanceID       string               `yaml:"instance_id"`
	HTTPAddr         string               `yaml:"http_addr"`
	SnapshotPath     string               `yaml:"snapshot_path"`
	Engine           EngineConfig         `yaml:"engine"`
	Cache            CacheConfig          `yaml:"cache"`
	MQTT             MQTTConfig           `yaml:"mqtt"`
	InitialStreams   []types.StreamConfig `yaml:"initial_streams"`
}

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Load reads path, unmarshals YAML into a Config, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and fills defaults, mirroring
// orion-prototipe/internal/config/validator.go's shape.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" || !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("config: instance_id must match %s: %w", instanceIDPattern.String(), apperr.ErrConfiguration)
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("config: mqtt.broker is required: %w", apperr.ErrConfiguration)
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = fmt.Sprintf("/var/lib/orion/%s-streams.msgpack", cfg.InstanceID)
	}
	if cfg.Engine.WorkerCount <= 0 {
		cfg.Engine.WorkerCount = 3
	}
	if cfg.Engine.PhysicalCores <= 0 {
		cfg.Engine.PhysicalCores = 3
	}
	if cfg.Engine.QueueCapacity <= 0 {
		cfg.Engine.QueueCapacity = 6 * cfg.Engine.WorkerCount
	}
	if cfg.Cache.WindowSeconds <= 0 {
		cfg.Cache.WindowSeconds = 5
	}
	if cfg.Cache.PreviewWidth <= 0 {
		cfg.Cache.PreviewWidth = 640
	}
	if cfg.Cache.JPEGQuality <= 0 {
		cfg.Cache.JPEGQuality = 80
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = fmt.Sprintf("orion-%s", cfg.InstanceID)
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = fmt.Sprintf("care/inference/%s", cfg.InstanceID)
	}

	for _, sc := range cfg.InitialStreams {
		if sc.StreamID == "" {
			return fmt.Errorf("config: initial stream missing stream_id: %w", apperr.ErrConfiguration)
		}
		if sc.FrameSkip < 1 {
			return fmt.Errorf("config: stream %s: frame_skip must be >= 1: %w", sc.StreamID, apperr.ErrConfiguration)
		}
		for _, mc := range sc.Models {
			if mc.ConfThreshold < 0 || mc.ConfThreshold > 1 {
				return fmt.Errorf("config: stream %s model %s: conf_threshold out of [0,1]: %w", sc.StreamID, mc.TaskLabel, apperr.ErrConfiguration)
			}
			if mc.NMSThreshold < 0 || mc.NMSThreshold > 1 {
				return fmt.Errorf("config: stream %s model %s: nms_threshold out of [0,1]: %w", sc.StreamID, mc.TaskLabel, apperr.ErrConfiguration)
			}
		}
	}
	return nil
}
