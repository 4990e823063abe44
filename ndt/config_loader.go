package ndt

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the unified service configuration
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Launcher LauncherConfig `yaml:"launcher"`
	Map      MapConfig      `yaml:"map"`
	GPS      GPSConfig      `yaml:"gps"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// MQTTConfig configures the pose feed connection
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	PoseTopic     string `yaml:"pose_topic"`
	PublishPrefix string `yaml:"publish_prefix"`
}

// LauncherConfig configures the supervised localizer process
type LauncherConfig struct {
	Command        string `yaml:"command"`
	WorkDir        string `yaml:"workdir"`
	StopTimeoutSec int    `yaml:"stop_timeout_seconds"`
}

// StopTimeout returns the graceful-stop budget as a duration
func (lc LauncherConfig) StopTimeout() time.Duration {
	if lc.StopTimeoutSec <= 0 {
		return DefaultStopTimeout
	}
	return time.Duration(lc.StopTimeoutSec) * time.Second
}

// MapConfig configures the point-cloud map
type MapConfig struct {
	Path             string  `yaml:"path"`
	MaxDisplayPoints int     `yaml:"max_display_points"`
	Scale            float64 `yaml:"scale"`
	GridSpacing      float64 `yaml:"grid_spacing"`
}

// GPSConfig configures coordinate persistence
type GPSConfig struct {
	LogPath string `yaml:"log_path"`
}

// HTTPConfig configures the HTTP surface
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LoadConfig loads the configuration from a YAML file, applies defaults,
// and overlays environment overrides. Endpoint env vars are read once here,
// at process start.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if config.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt.broker is required (or set NDT_BROKER)")
	}
	if config.Launcher.Command == "" {
		return nil, fmt.Errorf("launcher.command is required")
	}

	return &config, nil
}

// DefaultConfig returns a config with defaults and env overrides applied,
// used when no config file is given.
func DefaultConfig() *Config {
	config := &Config{}
	applyEnvOverrides(config)
	applyDefaults(config)
	return config
}

// applyEnvOverrides lets the environment win over the YAML file for the
// connection endpoints, matching how the deployment scripts inject them.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("NDT_BROKER"); v != "" {
		config.MQTT.Broker = v
	}
	if v := os.Getenv("NDT_CLIENT_ID"); v != "" {
		config.MQTT.ClientID = v
	}
	if v := os.Getenv("NDT_POSE_TOPIC"); v != "" {
		config.MQTT.PoseTopic = v
	}
}

func applyDefaults(config *Config) {
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "ndtview"
	}
	if config.MQTT.PoseTopic == "" {
		config.MQTT.PoseTopic = "ndt/kalman_filtered_pose"
	}
	if config.MQTT.PublishPrefix == "" {
		config.MQTT.PublishPrefix = "ndtview"
	}
	if config.Launcher.StopTimeoutSec <= 0 {
		config.Launcher.StopTimeoutSec = int(DefaultStopTimeout / time.Second)
	}
	if config.Map.MaxDisplayPoints <= 0 {
		config.Map.MaxDisplayPoints = DefaultMaxDisplayPoints
	}
	if config.Map.Scale <= 0 {
		config.Map.Scale = 10.0
	}
	if config.Map.GridSpacing <= 0 {
		config.Map.GridSpacing = 5.0
	}
	if config.GPS.LogPath == "" {
		config.GPS.LogPath = "gps_coordinates.txt"
	}
	if config.HTTP.Port <= 0 {
		config.HTTP.Port = 8080
	}
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
