package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "auto", cfg.Model.Device)
	assert.Equal(t, 3, cfg.Predict.TopK)
	assert.Equal(t, 32, cfg.Predict.BatchSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
model:
  path: /models/snakes.onnx
  device: cpu
predict:
  top_k: 5
  augment: true
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/models/snakes.onnx", cfg.Model.Path)
	assert.Equal(t, "cpu", cfg.Model.Device)
	assert.Equal(t, 5, cfg.Predict.TopK)
	assert.True(t, cfg.Predict.Augment)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, "model_metadata.json", cfg.Model.Metadata)
	assert.Equal(t, 32, cfg.Predict.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model path", func(c *Config) { c.Model.Path = "" }},
		{"empty metadata path", func(c *Config) { c.Model.Metadata = "" }},
		{"bad device", func(c *Config) { c.Model.Device = "tpu" }},
		{"zero top_k", func(c *Config) { c.Predict.TopK = 0 }},
		{"negative batch size", func(c *Config) { c.Predict.BatchSize = -1 }},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
