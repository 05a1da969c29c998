package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/finreport-cli/internal/store"
)

var (
	runsSymbol string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List cached analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context(), "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		entries, err := e.Store.List(cmd.Context(), store.Filter{
			Symbol: strings.ToUpper(strings.TrimSpace(runsSymbol)),
			Limit:  runsLimit,
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("no cached runs")
			return nil
		}

		fmt.Printf("%-28s  %-36s  %12s  %s\n", "KEY", "RUN ID", "TOKENS", "CREATED")
		for _, entry := range entries {
			fmt.Printf("%-28s  %-36s  %12d  %s\n",
				entry.CacheKey,
				entry.RunID,
				entry.Usage.Total(),
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsSymbol, "symbol", "", "filter by ticker symbol")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}
