// Package config holds the YAML application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Predict PredictConfig `yaml:"predict"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
}

// ModelConfig locates the trained artifact and selects the device.
type ModelConfig struct {
	Path     string `yaml:"path"`
	Metadata string `yaml:"metadata"`
	Device   string `yaml:"device"`
}

// DatasetConfig locates the dataset and an optional class-config file.
type DatasetConfig struct {
	Dir         string `yaml:"dir"`
	ClassConfig string `yaml:"class_config"`
}

// PredictConfig tunes prediction behavior.
type PredictConfig struct {
	TopK      int  `yaml:"top_k"`
	BatchSize int  `yaml:"batch_size"`
	Augment   bool `yaml:"augment"`
}

// OutputConfig locates evaluation artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig configures the HTTP prediction API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

var validDevices = map[string]bool{
	"auto":        true,
	"cpu":         true,
	"gpu":         true,
	"accelerator": true,
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:     "snake_classifier_mobilenetv2.onnx",
			Metadata: "model_metadata.json",
			Device:   "auto",
		},
		Dataset: DatasetConfig{
			Dir: "dataset",
		},
		Predict: PredictConfig{
			TopK:      3,
			BatchSize: 32,
		},
		Output: OutputConfig{
			Dir: "evaluation",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would fail later.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path must be set")
	}
	if c.Model.Metadata == "" {
		return fmt.Errorf("model.metadata must be set")
	}
	if !validDevices[c.Model.Device] {
		return fmt.Errorf("model.device %q must be one of auto, cpu, gpu, accelerator", c.Model.Device)
	}
	if c.Predict.TopK < 1 {
		return fmt.Errorf("predict.top_k must be at least 1")
	}
	if c.Predict.BatchSize < 1 {
		return fmt.Errorf("predict.batch_size must be at least 1")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	return nil
}
