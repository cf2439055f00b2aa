// Package config loads the sensorview tool settings from YAML.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BusConfig struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	ConnectWait   time.Duration `yaml:"connect_timeout"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	MaxReconnects int           `yaml:"max_reconnects"`
}

type TopicsConfig struct {
	LidarClusters  string `yaml:"lidar_clusters"`
	RadarClusters  string `yaml:"radar_clusters"`
	RadarTargets   string `yaml:"radar_targets"`
	LidarPoints    string `yaml:"lidar_points"`
	FusionLidar    string `yaml:"fusion_lidar"`
	FusionRadar    string `yaml:"fusion_radar"`
	FusionOccupied string `yaml:"fusion_occupancy"`
}

// Sources lists the names accepted by TopicsConfig.Source.
var Sources = []string{
	"lidar-clusters", "radar-clusters", "radar-targets", "lidar-points",
	"fusion-lidar", "fusion-radar", "fusion-occupancy",
}

// Source returns the topic configured for a named source such as
// "radar-clusters" or "fusion-occupancy".
func (t TopicsConfig) Source(name string) (string, error) {
	topics := map[string]string{
		"lidar-clusters":   t.LidarClusters,
		"radar-clusters":   t.RadarClusters,
		"radar-targets":    t.RadarTargets,
		"lidar-points":     t.LidarPoints,
		"fusion-lidar":     t.FusionLidar,
		"fusion-radar":     t.FusionRadar,
		"fusion-occupancy": t.FusionOccupied,
	}
	topic, ok := topics[name]
	if !ok {
		return "", errors.Errorf("unknown source %q, want one of %v", name, Sources)
	}
	return topic, nil
}

type DecoderConfig struct {
	IDFields []string `yaml:"id_fields"`
}

type ViewerConfig struct {
	Listen string `yaml:"listen"`
}

// Config is the top-level structure of sensorview.yaml.
type Config struct {
	Bus       BusConfig     `yaml:"bus"`
	Topics    TopicsConfig  `yaml:"topics"`
	Decoder   DecoderConfig `yaml:"decoder"`
	Viewer    ViewerConfig  `yaml:"viewer"`
	QueueSize int           `yaml:"queue_size"`
}

func Default() Config {
	return Config{
		Bus: BusConfig{
			URL:           "nats://127.0.0.1:4222",
			Name:          "sensorview",
			ConnectWait:   2 * time.Second,
			ReconnectWait: 2 * time.Second,
			MaxReconnects: 60,
		},
		Topics: TopicsConfig{
			LidarClusters:  "rt/lidar/clusters",
			RadarClusters:  "rt/radar/clusters",
			RadarTargets:   "rt/radar/targets",
			LidarPoints:    "rt/lidar/points",
			FusionLidar:    "rt/fusion/lidar",
			FusionRadar:    "rt/fusion/radar",
			FusionOccupied: "rt/fusion/occupancy",
		},
		Decoder:   DecoderConfig{IDFields: []string{"cluster_id", "id"}},
		QueueSize: 100,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.QueueSize <= 0 {
		return nil, errors.Errorf("queue_size must be positive, got %d", cfg.QueueSize)
	}
	return &cfg, nil
}
