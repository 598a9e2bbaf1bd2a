package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wqzhao/snakeid/internal/preprocess"
)

func newPredictCmd() *cobra.Command {
	var (
		modelPath  string
		metaPath   string
		devicePref string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "predict [flags] IMAGE...",
		Short: "Classify one or more snake images",
		Args:  cobra.MinimumNArgs(1),
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
			if cmd.Flags().Changed("model") {
				cfg.Model.Path = modelPath
			}
			if cmd.Flags().Changed("metadata") {
				cfg.Model.Metadata = metaPath
			}
			if cmd.Flags().Changed("device") {
				cfg.Model.Device = devicePref
			}
			if cmd.Flags().Changed("top-k") {
				cfg.Predict.TopK = topK
			}

			pipe, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}
			defer pipe.Close()

			samples := make([]preprocess.Sample, len(args))
			for i, path := range args {
				samples[i] = preprocess.NewSample(path)
			}
			results, err := pipe.pred.PredictBatch(samples, cfg.Predict.TopK)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "error processing %s: %v\n", r.Sample.Path, r.Err)
					continue
				}
				top := r.Prediction.Top()
				fmt.Printf("Image: %s\n", r.Sample.Path)
				fmt.Printf("Top prediction: %s (%.2f%%)\n", top.Label.CommonName, top.Probability*100)
				if len(r.Prediction.TopK) > 1 {
					for i, s := range r.Prediction.TopK {
						fmt.Printf("  %d. %s (%s) - %.2f%%\n",
							i+1, s.Label.CommonName, s.Label.ScientificName, s.Probability*100)
					}
				}
			}
			if failed > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d image(s) failed preprocessing\n", failed, len(results))
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to the ONNX model artifact")
	cmd.Flags().StringVar(&metaPath, "metadata", "", "path to the model metadata JSON")
	cmd.Flags().StringVar(&devicePref, "device", "auto", "device preference: cpu, gpu, accelerator or auto")
	cmd.Flags().IntVar(&topK, "top-k", 3, "number of ranked predictions to show")
	return cmd
}
