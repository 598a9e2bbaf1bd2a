package main

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/config"
	"github.com/wqzhao/snakeid/internal/device"
	"github.com/wqzhao/snakeid/internal/model"
	"github.com/wqzhao/snakeid/internal/predictor"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

// buildRegistry resolves the class registry: an explicit class-config
// file wins, then a dataset split scan, then the built-in table.
func buildRegistry(cfg *config.Config) (*classes.Registry, error) {
	if cfg.Dataset.ClassConfig != "" {
		return classes.LoadConfig(cfg.Dataset.ClassConfig)
	}
	for _, split := range []string{"train", "test", "validation"} {
		dir := filepath.Join(cfg.Dataset.Dir, split)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if reg, err := classes.FromDataset(dir); err == nil {
				return reg, nil
			}
		}
	}
	return classes.Default(), nil
}

// pipeline bundles the load-once process state: registry, device,
// model and predictor. Constructed at startup, torn down at exit.
type pipeline struct {
	cfg  *config.Config
	reg  *classes.Registry
	mdl  *model.Model
	pred *predictor.Predictor
}

func buildPipeline(cfg *config.Config, log *zap.Logger) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	dev, err := device.Select(cfg.Model.Device)
	if err != nil {
		return nil, err
	}
	mdl, err := model.Load(cfg.Model.Path, cfg.Model.Metadata, reg, dev, log)
	if err != nil {
		return nil, err
	}
	var pre *preprocess.Preprocessor
	if cfg.Predict.Augment {
		pre = preprocess.NewAugmented(time.Now().UnixNano())
	}
	pred := predictor.New(mdl, reg, pre, cfg.Predict.BatchSize, log)
	return &pipeline{cfg: cfg, reg: reg, mdl: mdl, pred: pred}, nil
}

func (p *pipeline) Close() {
	p.mdl.Close()
	device.ShutdownRuntime()
}
