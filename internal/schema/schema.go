// Package schema coerces raw capability responses into validated typed
// payloads. Internal code never operates on an unvalidated structure: every
// stage boundary goes through DecodeFacts or DecodeNarrative.
package schema

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/model"
)

// factsRequiredKeys must be present in an extraction response, even when
// their value is null. A missing key means the capability dropped part of the
// contract rather than reporting an unknown.
var factsRequiredKeys = []string{
	"company_name",
	"currency",
	"revenue",
	"net_income",
	"eps",
	"total_assets",
	"total_liabilities",
	"shareholders_equity",
	"operating_cash_flow",
	"capital_expenditures",
	"free_cash_flow",
	"segments",
	"other_income_items",
}

var narrativeRequiredKeys = []string{
	"company_type",
	"investor_summary",
	"red_flags",
}

// Validator checks capability payloads against their required shape.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// DecodeFacts parses an extraction response into validated FinancialFacts.
// Markdown fences, trailing commas, and similar model formatting noise are
// repaired before parsing; genuine shape violations are not.
func (s *Validator) DecodeFacts(text string) (*model.FinancialFacts, error) {
	raw, err := s.toObject(text)
	if err != nil {
		return nil, err
	}
	if err := requireKeys(raw, factsRequiredKeys); err != nil {
		return nil, err
	}

	var facts model.FinancialFacts
	if err := unmarshalStrict(raw, &facts); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&facts); err != nil {
		return nil, model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: facts contract"))
	}
	return &facts, nil
}

// DecodeNarrative parses an analysis response into a validated Narrative.
func (s *Validator) DecodeNarrative(text string) (*model.Narrative, error) {
	raw, err := s.toObject(text)
	if err != nil {
		return nil, err
	}
	if err := requireKeys(raw, narrativeRequiredKeys); err != nil {
		return nil, err
	}

	var n model.Narrative
	if err := unmarshalStrict(raw, &n); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&n); err != nil {
		return nil, model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: narrative contract"))
	}
	return &n, nil
}

// toObject repairs common LLM formatting issues and parses the response into
// a key-indexed object.
func (s *Validator) toObject(text string) (map[string]json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.NewStageError(model.ErrKindSchema, eris.New("schema: empty response"))
	}

	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return nil, model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: unparseable response"))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return nil, model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: response is not a JSON object"))
	}
	return raw, nil
}

// requireKeys verifies the required top-level shape. Keys must exist; null
// values are acceptable (they mark explicit unknowns).
func requireKeys(raw map[string]json.RawMessage, keys []string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return model.NewStageError(model.ErrKindSchema,
			eris.Errorf("schema: missing required keys: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// unmarshalStrict re-marshals the object into the target struct, surfacing
// wrong primitive types (e.g. a string where a number belongs) as schema
// violations.
func unmarshalStrict(raw map[string]json.RawMessage, target any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: re-encode"))
	}
	if err := json.Unmarshal(buf, target); err != nil {
		return model.NewStageError(model.ErrKindSchema, eris.Wrap(err, "schema: field type mismatch"))
	}
	return nil
}
