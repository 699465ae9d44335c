package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anc-caregap-server/internal/model"
	"github.com/anc-caregap-server/internal/training"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Train the care gap model from a survey CSV export",
	RunE:  runFit,
}

func init() {
	d := training.DefaultBoostConfig()
	fitCmd.Flags().String("data", "", "Survey CSV export with a header row (required)")
	fitCmd.Flags().String("out", "artifacts", "Directory the model and transformer artifacts are written to")
	fitCmd.Flags().Int("estimators", d.Estimators, "Number of boosting rounds")
	fitCmd.Flags().Float64("learning-rate", d.LearningRate, "Shrinkage applied to every tree")
	fitCmd.Flags().Int("max-depth", d.MaxDepth, "Maximum tree depth")
	fitCmd.Flags().Int("min-samples-leaf", d.MinSamplesLeaf, "Minimum rows per leaf")
	fitCmd.Flags().Float64("subsample", d.Subsample, "Row fraction sampled per tree")
	fitCmd.Flags().Int64("seed", d.Seed, "Random seed")
	_ = fitCmd.MarkFlagRequired("data")
}

func runFit(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	dataPath, _ := flags.GetString("data")
	outDir, _ := flags.GetString("out")

	cfg := training.DefaultBoostConfig()
	cfg.Estimators, _ = flags.GetInt("estimators")
	cfg.LearningRate, _ = flags.GetFloat64("learning-rate")
	cfg.MaxDepth, _ = flags.GetInt("max-depth")
	cfg.MinSamplesLeaf, _ = flags.GetInt("min-samples-leaf")
	cfg.Subsample, _ = flags.GetFloat64("subsample")
	cfg.Seed, _ = flags.GetInt64("seed")
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := training.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	result, err := training.NewTrainer(logger).Train(ds, cfg)
	if err != nil {
		return err
	}
	if err := model.Save(outDir, result.Transformer, result.Ensemble); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}
	logger.WithField("dir", outDir).Info("Artifacts written")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result.Summary)
}
