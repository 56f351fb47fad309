package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studytask/taskparse/internal/vocab"
	"gopkg.in/yaml.v3"
)

// NewVocabCmd creates the vocab command
func NewVocabCmd() *cobra.Command {
	var vocabPath string

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Show the effective vocabulary",
		Long:  "Print the merged vocabulary (defaults plus any override file) as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vocab.Load(vocabPath)
			if err != nil {
				return fmt.Errorf("failed to load vocabulary: %w", err)
			}

			encoder := yaml.NewEncoder(os.Stdout)
			defer func() {
				if err := encoder.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to flush output: %v\n", err)
				}
			}()
			if err := encoder.Encode(v); err != nil {
				return fmt.Errorf("failed to encode vocabulary: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to a YAML vocabulary override file")

	return cmd
}
