package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/finreport-cli/internal/model"
)

var (
	analyzeExtractionModel string
	analyzeAnalysisModel   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL [SYMBOL...]",
	Short: "Run the analysis pipeline for one or more symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Pipeline.MaxConcurrentRuns)

		reports := make([]string, len(args))
		for i, symbol := range args {
			g.Go(func() error {
				key := model.AnalysisKey{
					Symbol:          strings.ToUpper(symbol),
					ExtractionModel: analyzeExtractionModel,
					AnalysisModel:   analyzeAnalysisModel,
				}

				h, err := e.Orchestrator.Start(gctx, key)
				if err != nil {
					return err
				}
				if h.Cached {
					zap.L().Info("serving cached result",
						zap.String("symbol", key.Symbol),
						zap.String("run_id", h.RunID))
				}

				led, err := e.Orchestrator.Wait(gctx, h)
				if err != nil {
					return err
				}
				reports[i] = led.FinalReport
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, report := range reports {
			fmt.Fprintln(cmd.OutOrStdout(), report)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeExtractionModel, "extraction-model", "auto", "model for the extraction stage")
	analyzeCmd.Flags().StringVar(&analyzeAnalysisModel, "analysis-model", "auto", "model for the analysis stage")
	rootCmd.AddCommand(analyzeCmd)
}
