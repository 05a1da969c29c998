package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finreport-cli/internal/capability"
	"github.com/sells-group/finreport-cli/internal/consistency"
	"github.com/sells-group/finreport-cli/internal/cost"
	"github.com/sells-group/finreport-cli/internal/pipeline"
	"github.com/sells-group/finreport-cli/internal/runner"
	"github.com/sells-group/finreport-cli/internal/source"
	"github.com/sells-group/finreport-cli/internal/store"
	"github.com/sells-group/finreport-cli/pkg/anthropic"
	"github.com/sells-group/finreport-cli/pkg/openrouter"
)

// env bundles the wired application components for a command invocation.
type env struct {
	Store        store.Store
	Orchestrator *runner.Orchestrator
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

// initEnv wires the store, capability clients, pipeline, and orchestrator
// from the loaded config.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		st, err = store.NewSQLite(cfg.Store.Path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	clients := map[string]capability.Client{}
	if cfg.OpenRouter.Key != "" {
		clients["openrouter"] = capability.NewOpenRouterClient(openrouter.NewClient(
			cfg.OpenRouter.Key,
			openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
			openrouter.WithRateLimit(cfg.OpenRouter.RequestsPerSecond),
		))
	}
	if cfg.Anthropic.Key != "" {
		clients["anthropic"] = capability.NewAnthropicClient(anthropic.NewClient(cfg.Anthropic.Key))
	}

	catalog, err := capability.LoadCatalog(cfg.Models.CatalogPath)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "load model catalog")
	}
	catalog = catalog.WithDefaults(cfg.Models.Extraction, cfg.Models.Analysis)
	registry := capability.NewRegistry(catalog, clients)

	rates := cost.Rates{Models: map[string]cost.ModelRate{}}
	for name, p := range cfg.Pricing.Models {
		rates.Models[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	costCalc := cost.NewCalculator(rates)

	checker := consistency.New(consistency.Config{
		BalanceSheetTolerance: cfg.Consistency.BalanceSheetTolerance,
		CashFlowTolerance:     cfg.Consistency.CashFlowTolerance,
		NetIncomeTolerance:    cfg.Consistency.NetIncomeTolerance,
		FCFTolerance:          cfg.Consistency.FCFTolerance,
		AbsoluteFloor:         cfg.Consistency.AbsoluteFloor,
	})

	pipe := pipeline.New(registry, checker, costCalc, pipeline.Options{
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSecs) * time.Second,
		MaxTokens:    cfg.Pipeline.MaxTokens,
	})

	docs := source.NewFSProvider(cfg.Documents.Dir)
	orch := runner.New(st, pipe, docs, cfg.Pipeline.MaxConcurrentRuns, cfg.Pipeline.SubscriberBacklog)

	return &env{Store: st, Orchestrator: orch}, nil
}
