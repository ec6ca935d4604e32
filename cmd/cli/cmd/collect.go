package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect [provider-slug]",
	Short: "Run a collection batch, or collect a single provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var result map[string]any
			if err := call(http.MethodPost, "/api/v1/collector/run/"+args[0], &result); err != nil {
				return err
			}
			printJSON(result)
			return nil
		}

		var result map[string]any
		if err := call(http.MethodPost, "/api/v1/collector/run", &result); err != nil {
			return err
		}
		printJSON(result)
		return nil
	},
}

var invalidateProvider string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show recent collection reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]any
		if err := call(http.MethodGet, "/api/v1/collector/reports", &result); err != nil {
			return err
		}
		printJSON(result)
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&invalidateProvider, "invalidate", "",
		"invalidate the cached records for a provider before collecting (\"all\" for every provider)")
	collectCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if invalidateProvider == "" {
			return nil
		}
		path := "/api/v1/collector/cache"
		if invalidateProvider != "all" {
			path += "?provider=" + invalidateProvider
		}
		if err := call(http.MethodDelete, path, nil); err != nil {
			return fmt.Errorf("cache invalidation failed: %w", err)
		}
		return nil
	}
}
