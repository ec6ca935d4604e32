// Package cmd implements the radar CLI, a thin client over the server API.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Price Radar CLI",
	Long:  "Command-line client for the Price Radar collection service.",
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultURL := os.Getenv("RADAR_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "server base URL")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(breakersCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(reportsCmd)
}

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// call performs one API request and decodes the JSON response.
func call(method, path string, dest any) error {
	req, err := http.NewRequest(method, serverURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}

// printJSON pretty-prints an API payload.
func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(out))
}
