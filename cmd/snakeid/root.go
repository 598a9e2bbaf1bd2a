package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snakeid",
		Short: "Snake species classification and evaluation",
		Long: `snakeid classifies snake photographs into species categories and
evaluates a trained classifier against a labeled dataset, producing a
confusion matrix, per-class metrics and report artifacts.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newPredictCmd(), newEvaluateCmd(), newClassesCmd(), newServeCmd())
	return root
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}
