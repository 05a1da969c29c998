package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/internal/store"
)

var (
	reportExtractionModel string
	reportAnalysisModel   string
)

var reportCmd = &cobra.Command{
	Use:   "report SYMBOL",
	Short: "Print the cached report for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context(), "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		key := model.AnalysisKey{
			Symbol:          strings.ToUpper(strings.TrimSpace(args[0])),
			ExtractionModel: reportExtractionModel,
			AnalysisModel:   reportAnalysisModel,
		}

		led, err := e.Store.Check(cmd.Context(), key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return eris.Errorf("no cached result for %s; run `finreport analyze %s` first", key.Encode(), key.Symbol)
			}
			return err
		}

		fmt.Println(led.FinalReport)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportExtractionModel, "extraction-model", "auto", "extraction model alias or identifier")
	reportCmd.Flags().StringVar(&reportAnalysisModel, "analysis-model", "auto", "analysis model alias or identifier")
	rootCmd.AddCommand(reportCmd)
}
