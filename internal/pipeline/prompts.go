package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/finreport-cli/internal/model"
)

const systemPrompt = `You are a meticulous financial analyst. You read audited financial statements and produce precise, structured output. You never invent figures: a value that is not stated in the source material is null.`

const extractionPrompt = `Extract the company's financial data from the statement text below.

Return a JSON object with exactly these keys:
company_name, fiscal_year, currency,
revenue {current, previous}, cogs, operating_income, interest_expense,
net_income, net_income_previous, eps, ebitda,
total_assets, total_liabilities, shareholders_equity,
current_assets, current_liabilities, accounts_receivable, cash, total_debt,
operating_cash_flow, capital_expenditures, free_cash_flow, dividends_paid,
beginning_cash, net_change_cash, ending_cash, cash_flow_net_income,
shares_outstanding, book_value_per_share,
segments [{name, revenue, operating_income}],
other_income_items [{label, amount}],
business_model [{name, description}],
investor_statements [string]`

const extractionRequirements = `**YOUR TASK:**
Extract all financial data from the text above and return it as a valid JSON object matching the required schema.

**CRITICAL REQUIREMENTS:**
1. Return ONLY valid JSON - no markdown code blocks, no explanations, no additional text
2. Use numbers (not strings) for all monetary values
3. Use null for missing values (never use 0 or empty string as placeholder)
4. Search ALL sections: Income Statement, Balance Sheet, Cash Flow Statement, Notes
5. Extract exact values as stated in the document - do not estimate or calculate unless explicitly instructed

Return the JSON object now:`

const analysisPrompt = `Write an investor-focused assessment of the company from its extracted data and derived metrics below.

Return a JSON object with exactly these keys:
company_type ("operating", "holding", or "mixed"),
investor_summary (string),
investment_growth_areas [string], holding_focus_areas [string],
loss_causing_areas [string], new_initiatives [string], red_flags [string],
segment_highlights [{name, comment}],
dividend_analysis {strategy, dividend_statements [string], explanation},
investment_analysis {investment_trend}

Only comment on business segments that appear in the extracted data. Do not introduce segments, figures, or line items that are not present upstream.`

const promptDelimiter = "================================================================================"

// BuildExtractionPrompt assembles the user prompt for the Extract stage from
// the statement text and the optional observed stock price.
func BuildExtractionPrompt(text string, stockPrice *float64, currency string) string {
	var priceStr string
	if stockPrice != nil {
		if currency != "" {
			priceStr = fmt.Sprintf("\n\n**Current Stock Price: %s %.2f**", currency, *stockPrice)
		} else {
			priceStr = fmt.Sprintf("\n\n**Current Stock Price: %.2f**", *stockPrice)
		}
	}

	var b strings.Builder
	b.WriteString(extractionPrompt)
	b.WriteString(priceStr)
	b.WriteString("\n\n")
	b.WriteString(promptDelimiter)
	b.WriteString("\nEXTRACTED FINANCIAL STATEMENT TEXT (PDF has already been converted to text):\n")
	b.WriteString(promptDelimiter)
	b.WriteString("\n\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString(promptDelimiter)
	b.WriteString("\nEND OF EXTRACTED TEXT\n")
	b.WriteString(promptDelimiter)
	b.WriteString("\n\n")
	b.WriteString(extractionRequirements)
	return b.String()
}

// BuildAnalysisPrompt assembles the user prompt for the Analyze stage.
func BuildAnalysisPrompt(facts *model.FinancialFacts, metrics *model.DerivedMetrics) (string, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", err
	}
	metricsJSON, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(analysisPrompt)
	b.WriteString("\n\nExtracted Data:\n")
	b.Write(factsJSON)
	b.WriteString("\n\nCalculated Metrics:\n")
	b.Write(metricsJSON)
	b.WriteString("\n\nProvide investor-focused analysis as structured JSON. Return ONLY valid JSON, no additional text.")
	return b.String(), nil
}
