package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewExtractCmd creates the extract command
func NewExtractCmd() *cobra.Command {
	var vocabPath string
	var wordVecPath string

	cmd := &cobra.Command{
		Use:   "extract <text>",
		Short: "Extract task attributes from a text",
		Long:  "Run the extraction pipeline on one input text and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildOfflinePipeline(vocabPath, wordVecPath)
			if err != nil {
				return err
			}

			result := pipeline.Extract(context.Background(), args[0])

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(result); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to a YAML vocabulary override file")
	cmd.Flags().StringVar(&wordVecPath, "wordvec", "", "Path to a word vector model file")

	return cmd
}
