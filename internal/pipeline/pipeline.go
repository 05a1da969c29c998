// Package pipeline runs the five-stage analysis sequence over one statement:
// Extract -> Calculate -> Validate -> Analyze -> Format.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finreport-cli/internal/calc"
	"github.com/sells-group/finreport-cli/internal/capability"
	"github.com/sells-group/finreport-cli/internal/consistency"
	"github.com/sells-group/finreport-cli/internal/cost"
	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/internal/schema"
	"github.com/sells-group/finreport-cli/internal/source"
)

// Options tunes stage execution.
type Options struct {
	StageTimeout time.Duration
	MaxTokens    int
}

// DefaultOptions returns the execution defaults.
func DefaultOptions() Options {
	return Options{
		StageTimeout: 5 * time.Minute,
		MaxTokens:    8192,
	}
}

// Pipeline executes analysis runs.
type Pipeline struct {
	registry *capability.Registry
	schema   *schema.Validator
	checker  *consistency.Checker
	costCalc *cost.Calculator
	opts     Options
}

// New creates a Pipeline with all dependencies.
func New(registry *capability.Registry, checker *consistency.Checker, costCalc *cost.Calculator, opts Options) *Pipeline {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = DefaultOptions().StageTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}
	return &Pipeline{
		registry: registry,
		schema:   schema.New(),
		checker:  checker,
		costCalc: costCalc,
		opts:     opts,
	}
}

// Run executes every stage for the ledger's key over the given document,
// appending one StageResult per stage and notifying onEvent after each append.
// A stage failure records the error result, marks the run failed, and skips
// all later stages. The returned error is the failing stage's error, nil on a
// complete run.
func (p *Pipeline) Run(ctx context.Context, led *model.Ledger, doc *source.Document, onEvent func(model.StageResult)) error {
	log := zap.L().With(
		zap.String("run_id", led.RunID),
		zap.String("symbol", led.Key.Symbol),
	)
	log.Info("pipeline: starting analysis",
		zap.String("extraction_model", led.Key.ExtractionModel),
		zap.String("analysis_model", led.Key.AnalysisModel),
	)

	if err := led.Transition(model.RunStatusRunning); err != nil {
		return eris.Wrap(err, "pipeline: start run")
	}
	led.StockPrice = doc.StockPrice
	led.Currency = doc.Currency

	// Capability stages report the resolved provider model ID so cost
	// attribution prices what actually ran, not the requested alias.
	runStage := func(stage model.Stage, fn func(ctx context.Context) (model.TokenUsage, string, error)) error {
		sctx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
		defer cancel()

		start := time.Now().UTC()
		usage, modelID, err := fn(sctx)
		res := model.StageResult{
			Stage:      stage,
			Model:      modelID,
			StartedAt:  start,
			FinishedAt: time.Now().UTC(),
			Usage:      usage,
		}
		if err != nil {
			res.Error = err.Error()
			res.ErrorKind = model.KindOf(err)
			log.Error("pipeline: stage failed",
				zap.String("stage", string(stage)),
				zap.String("kind", string(res.ErrorKind)),
				zap.Duration("elapsed", res.FinishedAt.Sub(start)),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", string(stage)),
				zap.Duration("elapsed", res.FinishedAt.Sub(start)),
				zap.Int64("tokens", usage.Total()),
			)
		}

		if appendErr := led.Append(res); appendErr != nil {
			// An append rejection means the run sequencing is broken; it
			// outranks the stage's own error.
			return eris.Wrap(appendErr, "pipeline: record stage")
		}
		if onEvent != nil {
			onEvent(res)
		}
		return err
	}

	fail := func(stageErr error) error {
		if terr := led.Transition(model.RunStatusFailed); terr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(terr))
		}
		return stageErr
	}

	if err := runStage(model.StageExtract, func(sctx context.Context) (model.TokenUsage, string, error) {
		return p.runExtract(sctx, led, doc)
	}); err != nil {
		return fail(err)
	}

	if err := runStage(model.StageCalculate, func(sctx context.Context) (model.TokenUsage, string, error) {
		led.Metrics = calc.Derive(led.Facts, doc.StockPrice)
		return model.TokenUsage{}, "", nil
	}); err != nil {
		return fail(err)
	}

	if err := runStage(model.StageValidate, func(sctx context.Context) (model.TokenUsage, string, error) {
		result := p.checker.Check(led.Facts)
		led.Validation = &result
		if contradictions := result.Contradictions(); len(contradictions) > 0 {
			msgs := make([]string, len(contradictions))
			for i, f := range contradictions {
				msgs[i] = f.Message
			}
			return model.TokenUsage{}, "", model.NewStageError(model.ErrKindContradiction,
				eris.New("consistency: "+strings.Join(msgs, "; ")))
		}
		return model.TokenUsage{}, "", nil
	}); err != nil {
		return fail(err)
	}

	if err := runStage(model.StageAnalyze, func(sctx context.Context) (model.TokenUsage, string, error) {
		return p.runAnalyze(sctx, led)
	}); err != nil {
		return fail(err)
	}

	if err := runStage(model.StageFormat, func(sctx context.Context) (model.TokenUsage, string, error) {
		led.FinalReport = FormatReport(led, p.costCalc)
		return model.TokenUsage{}, "", nil
	}); err != nil {
		return fail(err)
	}

	if err := led.Transition(model.RunStatusComplete); err != nil {
		return eris.Wrap(err, "pipeline: complete run")
	}

	usage := led.TotalUsage()
	log.Info("pipeline: analysis complete",
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
		zap.Float64("estimated_cost_usd", p.costCalc.Run(led)),
	)
	return nil
}
