package model

// SegmentShare is one segment's percentage contribution to a company total.
type SegmentShare struct {
	Name            string   `json:"name"`
	RevenuePct      *float64 `json:"revenue_pct"`
	OperatingIncPct *float64 `json:"operating_income_pct"`
}

// OtherIncomeShare is one itemized other-income line expressed as a share of
// net income.
type OtherIncomeShare struct {
	Label        string   `json:"label"`
	NetIncomePct *float64 `json:"net_income_pct"`
}

// DerivedMetrics is the output of the Calculate stage. Every field is derived
// purely from FinancialFacts (plus the observed stock price); a metric whose
// inputs are unknown stays nil.
type DerivedMetrics struct {
	// Share metrics
	SharesOutstanding *float64 `json:"shares_outstanding"`
	MarketCap         *float64 `json:"market_cap"`
	BookValuePerShare *float64 `json:"book_value_per_share"`
	CashPerShare      *float64 `json:"cash_per_share"`

	// Valuation
	PERatio  *float64 `json:"pe_ratio"`
	PBRatio  *float64 `json:"pb_ratio"`
	PSRatio  *float64 `json:"ps_ratio"`
	EVEBITDA *float64 `json:"ev_ebitda"`
	FCFYield *float64 `json:"fcf_yield"`

	// Growth
	RevenueGrowthPct   *float64 `json:"revenue_growth_pct"`
	NetIncomeGrowthPct *float64 `json:"net_income_growth_pct"`

	// Profitability and health
	ROE              *float64 `json:"roe"`
	ROA              *float64 `json:"roa"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	DebtToAssets     *float64 `json:"debt_to_assets"`
	CurrentRatio     *float64 `json:"current_ratio"`
	QuickRatio       *float64 `json:"quick_ratio"`
	WorkingCapital   *float64 `json:"working_capital"`
	OperatingMargin  *float64 `json:"operating_margin"`
	NetMargin        *float64 `json:"net_margin"`
	GrossMarginPct   *float64 `json:"gross_margin_pct"`
	InterestCoverage *float64 `json:"interest_coverage"`

	// Capital allocation
	CapexPctRevenue *float64 `json:"capex_pct_revenue"`
	PayoutRatio     *float64 `json:"payout_ratio"`
	FCFCoverage     *float64 `json:"fcf_coverage"`

	// Composition. Derived only from itemized facts; empty when the source
	// reported no breakdown.
	SegmentComposition []SegmentShare     `json:"segment_composition"`
	OtherIncomeShares  []OtherIncomeShare `json:"other_income_shares"`
}

// FindingSeverity classifies a consistency finding.
type FindingSeverity string

const (
	SeverityWarning       FindingSeverity = "warning"
	SeverityContradiction FindingSeverity = "contradiction"
)

// Finding is one result from the consistency checker. Warnings pass through to
// the final report; a contradiction fails the run.
type Finding struct {
	Field    string          `json:"field"`
	Message  string          `json:"message"`
	Severity FindingSeverity `json:"severity"`
}

// ValidationResult aggregates the Validate stage's findings.
type ValidationResult struct {
	Findings []Finding `json:"findings"`
}

// Contradictions returns only the fatal findings.
func (v ValidationResult) Contradictions() []Finding {
	var out []Finding
	for _, f := range v.Findings {
		if f.Severity == SeverityContradiction {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns only the non-fatal findings.
func (v ValidationResult) Warnings() []Finding {
	var out []Finding
	for _, f := range v.Findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}
