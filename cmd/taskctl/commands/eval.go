package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/studytask/taskparse/internal/refdata"
)

// NewEvalCmd creates the eval command
func NewEvalCmd() *cobra.Command {
	var samplesPath string
	var vocabPath string
	var wordVecPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the pipeline against labelled samples",
		Long:  "Run the extraction pipeline over a labelled sample file and report per-field accuracy",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := refdata.LoadFile(samplesPath)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return fmt.Errorf("sample file %s is empty", samplesPath)
			}

			pipeline, err := buildOfflinePipeline(vocabPath, wordVecPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var categoryHits, priorityHits int
			for _, sample := range samples {
				result := pipeline.Extract(ctx, sample.Text)

				for _, category := range result.Categories {
					if category == sample.Labels.Category {
						categoryHits++
						break
					}
				}
				if result.Priority == sample.Labels.Priority {
					priorityHits++
				}
			}

			total := len(samples)
			fmt.Printf("Evaluated %d samples\n", total)
			fmt.Printf("  category accuracy: %.1f%% (%d/%d)\n", 100*float64(categoryHits)/float64(total), categoryHits, total)
			fmt.Printf("  priority accuracy: %.1f%% (%d/%d)\n", 100*float64(priorityHits)/float64(total), priorityHits, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "eval.json", "Path to a labelled sample file")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to a YAML vocabulary override file")
	cmd.Flags().StringVar(&wordVecPath, "wordvec", "", "Path to a word vector model file")

	return cmd
}
