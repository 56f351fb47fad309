package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studytask/taskparse/cmd/taskctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskctl",
		Short: "Command-line tool for the task extraction pipeline",
		Long:  "CLI tool for offline extraction, sample generation and ensemble weight management",
	}

	rootCmd.AddCommand(commands.NewExtractCmd())
	rootCmd.AddCommand(commands.NewVocabCmd())
	rootCmd.AddCommand(commands.NewSamplesCmd())
	rootCmd.AddCommand(commands.NewEvalCmd())
	rootCmd.AddCommand(commands.NewWeightsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
