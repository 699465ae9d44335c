package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anc-caregap-server/internal/encoder"
	"github.com/anc-caregap-server/internal/outcome"
	"github.com/anc-caregap-server/internal/training"
)

const exportPageSize = 500

var exportOutcomesCmd = &cobra.Command{
	Use:   "export-outcomes",
	Short: "Write recorded care outcomes as a training CSV",
	RunE:  runExportOutcomes,
}

func init() {
	exportOutcomesCmd.Flags().String("out", "", "Output CSV path (defaults to stdout)")
}

func runExportOutcomes(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cm, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := cm.GetConfig()

	codes, err := encoder.FromConfig(cfg.Scoring.SurveyCodes)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := outcome.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open outcome store: %w", err)
	}
	defer store.Close()

	var all []*outcome.Outcome
	for offset := 0; ; offset += exportPageSize {
		page, err := store.List(ctx, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list outcomes: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	ds, err := training.FromOutcomes(all, encoder.New(codes))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := ds.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	logger.WithField("rows", ds.Len()).Info("Outcomes exported")
	return nil
}
