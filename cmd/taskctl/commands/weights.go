package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewWeightsCmd creates the weights command
func NewWeightsCmd() *cobra.Command {
	var baseURL string
	var performance []string

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show or adjust ensemble weights on a running server",
		Long:  "Fetch the current ensemble weights, or adjust them by reporting per-provider performance scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			endpoint := strings.TrimRight(baseURL, "/") + "/api/v1/ensemble/weights"

			if len(performance) > 0 {
				scores := make(map[string]float64, len(performance))
				for _, pair := range performance {
					id, value, found := strings.Cut(pair, "=")
					if !found {
						return fmt.Errorf("invalid --perf entry %q, want provider=score", pair)
					}
					score, err := strconv.ParseFloat(value, 64)
					if err != nil {
						return fmt.Errorf("invalid score in --perf entry %q: %w", pair, err)
					}
					scores[id] = score
				}

				body, err := json.Marshal(map[string]any{"performance": scores})
				if err != nil {
					return fmt.Errorf("failed to encode request: %w", err)
				}
				resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
				if err != nil {
					return fmt.Errorf("failed to adjust weights: %w", err)
				}
				defer closeBody(resp)

				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("server returned status %d", resp.StatusCode)
				}
				fmt.Println("Weights adjusted")
			}

			resp, err := client.Get(endpoint)
			if err != nil {
				return fmt.Errorf("failed to fetch weights: %w", err)
			}
			defer closeBody(resp)

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			var envelope struct {
				Data struct {
					Weights   map[string]float64 `json:"weights"`
					Available []string           `json:"available"`
				} `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			ids := make([]string, 0, len(envelope.Data.Weights))
			for id := range envelope.Data.Weights {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			fmt.Println("Ensemble weights:")
			for _, id := range ids {
				fmt.Printf("  %-8s %.3f\n", id, envelope.Data.Weights[id])
			}
			if len(envelope.Data.Available) > 0 {
				fmt.Printf("Available providers: %s\n", strings.Join(envelope.Data.Available, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Base URL of the API server")
	cmd.Flags().StringArrayVar(&performance, "perf", nil, "Performance score as provider=score (repeatable); adjusts weights before showing them")

	return cmd
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
	}
}
