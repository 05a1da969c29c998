package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finreport-cli/internal/model"
)

const validFactsJSON = `{
	"company_name": "Engro Corporation",
	"fiscal_year": "2024",
	"currency": "PKR",
	"revenue": {"current": 1000000000, "previous": 950000000},
	"net_income": 150000000,
	"eps": 3.50,
	"total_assets": 2000000000,
	"total_liabilities": 1200000000,
	"shareholders_equity": 800000000,
	"operating_cash_flow": 210000000,
	"capital_expenditures": -60000000,
	"free_cash_flow": 150000000,
	"segments": [{"name": "Fertilizers", "revenue": 600000000, "operating_income": 90000000}],
	"other_income_items": []
}`

func TestDecodeFacts_Valid(t *testing.T) {
	v := New()
	facts, err := v.DecodeFacts(validFactsJSON)
	require.NoError(t, err)

	assert.Equal(t, "Engro Corporation", facts.CompanyName)
	require.NotNil(t, facts.Revenue.Current)
	assert.InDelta(t, 1e9, *facts.Revenue.Current, 0.1)
	require.Len(t, facts.Segments, 1)
	assert.Equal(t, "Fertilizers", facts.Segments[0].Name)
	assert.Nil(t, facts.EBITDA, "absent optional figure stays unknown")
}

func TestDecodeFacts_NullIsNotZero(t *testing.T) {
	v := New()
	facts, err := v.DecodeFacts(`{
		"company_name": "Engro Corporation",
		"currency": "PKR",
		"revenue": {"current": null, "previous": null},
		"net_income": null,
		"eps": null,
		"total_assets": null,
		"total_liabilities": null,
		"shareholders_equity": null,
		"operating_cash_flow": null,
		"capital_expenditures": null,
		"free_cash_flow": null,
		"segments": [],
		"other_income_items": []
	}`)
	require.NoError(t, err)

	assert.Nil(t, facts.NetIncome)
	assert.Nil(t, facts.Revenue.Current)
	assert.Empty(t, facts.Segments)
}

func TestDecodeFacts_MarkdownFenceRepaired(t *testing.T) {
	v := New()
	fenced := "```json\n" + validFactsJSON + "\n```"
	facts, err := v.DecodeFacts(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Engro Corporation", facts.CompanyName)
}

func TestDecodeFacts_MissingRequiredKeys(t *testing.T) {
	v := New()
	_, err := v.DecodeFacts(`{"company_name": "Engro Corporation"}`)
	require.Error(t, err)
	assert.Equal(t, model.ErrKindSchema, model.KindOf(err))
	assert.Contains(t, err.Error(), "net_income")
}

func TestDecodeFacts_WrongPrimitiveType(t *testing.T) {
	v := New()
	bad := `{
		"company_name": "Engro Corporation",
		"currency": "PKR",
		"revenue": {"current": 1000, "previous": 900},
		"net_income": "one hundred and fifty million",
		"eps": 3.50,
		"total_assets": null,
		"total_liabilities": null,
		"shareholders_equity": null,
		"operating_cash_flow": null,
		"capital_expenditures": null,
		"free_cash_flow": null,
		"segments": [],
		"other_income_items": []
	}`
	_, err := v.DecodeFacts(bad)
	require.Error(t, err)
	assert.Equal(t, model.ErrKindSchema, model.KindOf(err))
}

func TestDecodeFacts_NonJSONResponse(t *testing.T) {
	v := New()
	for _, text := range []string{"", "   ", "I could not find any financial data in the document."} {
		_, err := v.DecodeFacts(text)
		require.Error(t, err, "input %q", text)
		assert.Equal(t, model.ErrKindSchema, model.KindOf(err))
	}
}

func TestDecodeNarrative_Valid(t *testing.T) {
	v := New()
	n, err := v.DecodeNarrative(`{
		"company_type": "operating",
		"investor_summary": "Solid year with margin expansion.",
		"red_flags": ["Rising finance costs"],
		"new_initiatives": ["Polymer plant expansion"],
		"segment_highlights": [{"name": "Fertilizers", "comment": "Volume-led growth"}],
		"dividend_analysis": {"strategy": "progressive", "dividend_statements": [], "explanation": ""}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "operating", n.CompanyType)
	assert.Len(t, n.SegmentHighlights, 1)
}

func TestDecodeNarrative_EnumViolation(t *testing.T) {
	v := New()
	_, err := v.DecodeNarrative(`{
		"company_type": "conglomerate-ish",
		"investor_summary": "x",
		"red_flags": []
	}`)
	require.Error(t, err)
	assert.Equal(t, model.ErrKindSchema, model.KindOf(err))
}
