package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/capability"
	"github.com/sells-group/finreport-cli/internal/model"
)

// runAnalyze performs the second capability call: validated facts and metrics
// in, structured narrative out. The narrative may only reference segments the
// extraction reported; payloads that invent segments are rejected.
func (p *Pipeline) runAnalyze(ctx context.Context, led *model.Ledger) (model.TokenUsage, string, error) {
	entry, err := p.registry.Resolve(led.Key.AnalysisModel, capability.RoleAnalysis)
	if err != nil {
		return model.TokenUsage{}, "", err
	}
	client, err := p.registry.ClientFor(entry)
	if err != nil {
		return model.TokenUsage{}, entry.ID, err
	}

	prompt, err := BuildAnalysisPrompt(led.Facts, led.Metrics)
	if err != nil {
		return model.TokenUsage{}, entry.ID, eris.Wrap(err, "analyze: build prompt")
	}

	resp, err := client.Complete(ctx, capability.Request{
		Model:      entry.ID,
		System:     systemPrompt,
		Prompt:     prompt,
		MaxTokens:  p.opts.MaxTokens,
		JSONObject: true,
	})
	if err != nil {
		return model.TokenUsage{}, entry.ID, model.NewStageError(model.ErrKindUpstream,
			eris.Wrap(err, "analyze: capability call"))
	}

	narrative, err := p.schema.DecodeNarrative(resp.Text)
	if err != nil {
		return resp.Usage, entry.ID, err
	}

	if err := checkNarrativeBounds(narrative, led.Facts); err != nil {
		return resp.Usage, entry.ID, err
	}

	led.Narrative = narrative
	return resp.Usage, entry.ID, nil
}

// checkNarrativeBounds rejects narratives that comment on segments absent
// from the extracted facts.
func checkNarrativeBounds(n *model.Narrative, facts *model.FinancialFacts) error {
	known := make(map[string]bool, len(facts.Segments))
	for _, s := range facts.Segments {
		known[strings.ToLower(strings.TrimSpace(s.Name))] = true
	}

	var unknown []string
	for _, h := range n.SegmentHighlights {
		if !known[strings.ToLower(strings.TrimSpace(h.Name))] {
			unknown = append(unknown, h.Name)
		}
	}
	if len(unknown) > 0 {
		return model.NewStageError(model.ErrKindContradiction,
			eris.Errorf("analyze: narrative references segments not in extracted data: %s",
				strings.Join(unknown, ", ")))
	}
	return nil
}
