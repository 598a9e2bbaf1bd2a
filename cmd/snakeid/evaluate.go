package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wqzhao/snakeid/internal/evaluate"
	"github.com/wqzhao/snakeid/internal/report"
)

func newEvaluateCmd() *cobra.Command {
	var (
		datasetDir string
		splitName  string
		outDir     string
		modelPath  string
		metaPath   string
		devicePref string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the model against a labeled dataset split",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dataset") {
				cfg.Dataset.Dir = datasetDir
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("model") {
				cfg.Model.Path = modelPath
			}
			if cmd.Flags().Changed("metadata") {
				cfg.Model.Metadata = metaPath
			}
			if cmd.Flags().Changed("device") {
				cfg.Model.Device = devicePref
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Predict.BatchSize = batchSize
			}

			pipe, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}
			defer pipe.Close()

			split, err := evaluate.LoadSplit(cfg.Dataset.Dir, splitName, pipe.reg)
			if err != nil {
				return err
			}

			ev := evaluate.New(pipe.pred, pipe.reg, log)
			outcome, err := ev.Evaluate(split)
			if err != nil {
				return err
			}
			sum, err := evaluate.Metrics(outcome.Matrix, pipe.reg)
			if err != nil {
				return err
			}

			gen := report.New(cfg.Output.Dir, log)
			files, err := gen.WriteAll(outcome, sum)
			if err != nil {
				return err
			}

			fmt.Print(report.TextReport(outcome, sum))
			fmt.Printf("\nAccuracy: %.4f  Loss: %.4f  Macro F1: %.4f  Weighted F1: %.4f\n",
				sum.Accuracy, outcome.Loss, sum.Macro.F1, sum.Weighted.F1)
			fmt.Println("\nArtifacts:")
			for _, f := range files {
				fmt.Println("  " + f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "dataset root directory (train/validation/test layout)")
	cmd.Flags().StringVar(&splitName, "split", "test", "dataset split to evaluate: train, validation or test")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for evaluation artifacts")
	cmd.Flags().StringVar(&modelPath, "model", "", "path to the ONNX model artifact")
	cmd.Flags().StringVar(&metaPath, "metadata", "", "path to the model metadata JSON")
	cmd.Flags().StringVar(&devicePref, "device", "auto", "device preference: cpu, gpu, accelerator or auto")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "inference batch size")
	return cmd
}
