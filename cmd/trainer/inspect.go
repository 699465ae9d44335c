package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anc-caregap-server/internal/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load saved artifacts and print their metadata",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("model", filepath.Join("artifacts", model.ModelFile), "Path to the ensemble artifact")
	inspectCmd.Flags().String("transformer", filepath.Join("artifacts", model.TransformerFile), "Path to the transformer artifact")
}

func runInspect(cmd *cobra.Command, args []string) error {
	modelPath, _ := cmd.Flags().GetString("model")
	transformerPath, _ := cmd.Flags().GetString("transformer")

	p, err := model.Load(modelPath, transformerPath)
	if err != nil {
		return err
	}

	meta := p.Metadata()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model version:   %s\n", p.Version())
	fmt.Fprintf(out, "Created at:      %s\n", meta.CreatedAt)
	fmt.Fprintf(out, "Training rows:   %d\n", meta.Rows)
	fmt.Fprintf(out, "Positive rate:   %.3f\n", meta.PositiveRate)
	fmt.Fprintf(out, "Trees:           %d (max depth %d, seed %d)\n", len(p.Ensemble().Trees), meta.MaxDepth, meta.Seed)
	if len(meta.Components) > 0 {
		fmt.Fprintf(out, "Components:      %s\n", strings.Join(meta.Components, ", "))
	}
	fmt.Fprintf(out, "Features:        %s\n", strings.Join(p.Transformer().OutputNames(), ", "))
	return nil
}
