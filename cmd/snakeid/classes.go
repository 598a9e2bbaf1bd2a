package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClassesCmd() *cobra.Command {
	var (
		datasetDir  string
		classConfig string
	)

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Print the class registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dataset") {
				cfg.Dataset.Dir = datasetDir
			}
			if cmd.Flags().Changed("class-config") {
				cfg.Dataset.ClassConfig = classConfig
			}

			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("%d classes:\n", reg.Size())
			for _, l := range reg.Labels() {
				fmt.Printf("%3d  %-35s %-28s %s\n", l.Index, l.CommonName, l.ScientificName, l.LocalName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "derive classes from this dataset root")
	cmd.Flags().StringVar(&classConfig, "class-config", "", "load classes from this JSON class-config file")
	return cmd
}
