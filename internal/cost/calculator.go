package cost

import "github.com/sells-group/finreport-cli/internal/model"

// Rates holds per-model token pricing configuration.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator attributes USD cost to capability token usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Usage computes the cost of one capability invocation. Unknown models cost
// zero rather than guessing a rate.
func (c *Calculator) Usage(modelName string, usage model.TokenUsage) float64 {
	rate, ok := c.rates.Models[modelName]
	if !ok {
		return 0
	}
	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// Run sums the cost of a run's capability stages. Each stage records the
// provider model ID that actually served it, so "auto" requests and catalog
// aliases are priced against the resolved model, not the requested name.
func (c *Calculator) Run(ledger *model.Ledger) float64 {
	var total float64
	for _, sr := range ledger.Stages {
		if sr.Model != "" {
			total += c.Usage(sr.Model, sr.Usage)
		}
	}
	return total
}

// DefaultRates returns the default pricing table, keyed by resolved provider
// model ID, matching the bundled capability catalog.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"openai/gpt-4o-mini":         {Input: 0.15, Output: 0.60},
			"openai/gpt-4o":              {Input: 2.50, Output: 10.00},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
	}
}
