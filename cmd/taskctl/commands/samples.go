package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/studytask/taskparse/internal/refdata"
)

// NewSamplesCmd creates the samples command
func NewSamplesCmd() *cobra.Command {
	var count int
	var seed int64
	var outDir string
	var splitRatio float64

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Generate labelled sample texts",
		Long:  "Generate template-based labelled sample texts and split them into training and evaluation sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			if splitRatio <= 0 || splitRatio >= 1 {
				return fmt.Errorf("--split must be between 0 and 1 exclusive")
			}

			g := refdata.NewGenerator(seed)
			samples := g.Generate(count)

			if err := refdata.Save(samples, filepath.Join(outDir, "samples.json")); err != nil {
				return err
			}

			train, eval := g.Split(samples, splitRatio)
			if err := refdata.Save(train, filepath.Join(outDir, "train.json")); err != nil {
				return err
			}
			if err := refdata.Save(eval, filepath.Join(outDir, "eval.json")); err != nil {
				return err
			}

			fmt.Printf("Generated %d samples in %s (%d train, %d eval)\n", count, outDir, len(train), len(eval))
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1000, "Number of samples to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for reproducible output")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().Float64Var(&splitRatio, "split", 0.8, "Training fraction of the split")

	return cmd
}
