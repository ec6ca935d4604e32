package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var breakersCmd = &cobra.Command{
	Use:   "breakers",
	Short: "Show per-provider circuit breaker state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Breakers []struct {
				Name         string `json:"name"`
				State        string `json:"state"`
				FailureCount int    `json:"failure_count"`
				SuccessCount int    `json:"success_count"`
			} `json:"breakers"`
		}
		if err := call(http.MethodGet, "/api/v1/collector/status", &result); err != nil {
			return err
		}

		if len(result.Breakers) == 0 {
			fmt.Println("no breakers registered yet")
			return nil
		}
		for _, b := range result.Breakers {
			fmt.Printf("%-15s %-10s failures=%d successes=%d\n",
				b.Name, b.State, b.FailureCount, b.SuccessCount)
		}
		return nil
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the current trending products",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Trending []struct {
				ProductID  int64 `json:"product_id"`
				TrendScore int   `json:"trend_score"`
				Rank       int   `json:"rank"`
			} `json:"trending"`
		}
		if err := call(http.MethodGet, "/api/v1/trending", &result); err != nil {
			return err
		}

		if len(result.Trending) == 0 {
			fmt.Println("no trending products")
			return nil
		}
		for _, tr := range result.Trending {
			fmt.Printf("#%d product=%d score=%+d\n", tr.Rank, tr.ProductID, tr.TrendScore)
		}
		return nil
	},
}
