package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/capability"
	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/internal/source"
)

// runExtract performs the first capability call: statement text in, validated
// FinancialFacts out.
func (p *Pipeline) runExtract(ctx context.Context, led *model.Ledger, doc *source.Document) (model.TokenUsage, string, error) {
	entry, err := p.registry.Resolve(led.Key.ExtractionModel, capability.RoleExtraction)
	if err != nil {
		return model.TokenUsage{}, "", err
	}
	client, err := p.registry.ClientFor(entry)
	if err != nil {
		return model.TokenUsage{}, entry.ID, err
	}

	resp, err := client.Complete(ctx, capability.Request{
		Model:      entry.ID,
		System:     systemPrompt,
		Prompt:     BuildExtractionPrompt(doc.Text, doc.StockPrice, doc.Currency),
		MaxTokens:  p.opts.MaxTokens,
		JSONObject: true,
	})
	if err != nil {
		return model.TokenUsage{}, entry.ID, model.NewStageError(model.ErrKindUpstream,
			eris.Wrap(err, "extract: capability call"))
	}

	facts, err := p.schema.DecodeFacts(resp.Text)
	if err != nil {
		return resp.Usage, entry.ID, err
	}

	led.Facts = facts
	return resp.Usage, entry.ID, nil
}
