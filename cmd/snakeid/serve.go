package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		modelPath  string
		metaPath   string
		devicePref string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
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
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
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

			pipe, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}
			defer pipe.Close()

			srv := server.New(pipe.pred, pipe.reg, cfg.Predict.TopK, log)
			log.Info("server starting",
				zap.String("addr", cfg.Server.Addr),
				zap.String("model", cfg.Model.Path),
				zap.Int("classes", pipe.reg.Size()))
			log.Info("endpoints: GET /health, POST /predict (multipart field 'image', optional 'top_k')")

			return http.ListenAndServe(cfg.Server.Addr, srv.Routes())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, e.g. :8080")
	cmd.Flags().StringVar(&modelPath, "model", "", "path to the ONNX model artifact")
	cmd.Flags().StringVar(&metaPath, "metadata", "", "path to the model metadata JSON")
	cmd.Flags().StringVar(&devicePref, "device", "auto", "device preference: cpu, gpu, accelerator or auto")
	return cmd
}
