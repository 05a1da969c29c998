package model

// YearPair holds a current/previous period pair for a reported figure.
// Either side may be unknown.
type YearPair struct {
	Current  *float64 `json:"current"`
	Previous *float64 `json:"previous"`
}

// Segment is one reported business segment with its contribution figures.
type Segment struct {
	Name            string   `json:"name" validate:"required"`
	Revenue         *float64 `json:"revenue"`
	OperatingIncome *float64 `json:"operating_income"`
}

// OtherIncomeItem is one itemized line from the other-income note.
type OtherIncomeItem struct {
	Label  string   `json:"label" validate:"required"`
	Amount *float64 `json:"amount"`
}

// BusinessSegmentDescription is a qualitative description of one business line.
type BusinessSegmentDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FinancialFacts is the structured payload produced by the Extract stage.
// Every numeric field is a pointer: nil means the figure was not stated in
// the source document. Extraction never substitutes zero for an unknown.
type FinancialFacts struct {
	CompanyName string `json:"company_name" validate:"required"`
	FiscalYear  string `json:"fiscal_year"`
	Currency    string `json:"currency"`

	// Income statement
	Revenue           YearPair `json:"revenue"`
	COGS              *float64 `json:"cogs"`
	OperatingIncome   *float64 `json:"operating_income"`
	InterestExpense   *float64 `json:"interest_expense"`
	NetIncome         *float64 `json:"net_income"`
	NetIncomePrevious *float64 `json:"net_income_previous"`
	EPS               *float64 `json:"eps"`
	EBITDA            *float64 `json:"ebitda"`

	// Balance sheet
	TotalAssets        *float64 `json:"total_assets"`
	TotalLiabilities   *float64 `json:"total_liabilities"`
	ShareholdersEquity *float64 `json:"shareholders_equity"`
	CurrentAssets      *float64 `json:"current_assets"`
	CurrentLiabilities *float64 `json:"current_liabilities"`
	AccountsReceivable *float64 `json:"accounts_receivable"`
	Cash               *float64 `json:"cash"`
	TotalDebt          *float64 `json:"total_debt"`

	// Cash flow statement
	OperatingCashFlow   *float64 `json:"operating_cash_flow"`
	CapitalExpenditures *float64 `json:"capital_expenditures"`
	FreeCashFlow        *float64 `json:"free_cash_flow"`
	DividendsPaid       *float64 `json:"dividends_paid"`
	BeginningCash       *float64 `json:"beginning_cash"`
	NetChangeCash       *float64 `json:"net_change_cash"`
	EndingCash          *float64 `json:"ending_cash"`
	CashFlowNetIncome   *float64 `json:"cash_flow_net_income"`

	// Share data
	SharesOutstanding *float64 `json:"shares_outstanding"`
	BookValuePerShare *float64 `json:"book_value_per_share"`

	// Itemized breakdowns. Empty when the document reports none.
	Segments         []Segment         `json:"segments" validate:"dive"`
	OtherIncomeItems []OtherIncomeItem `json:"other_income_items" validate:"dive"`

	// Qualitative extractions
	BusinessModel      []BusinessSegmentDescription `json:"business_model"`
	InvestorStatements []string                     `json:"investor_statements"`
}

// SegmentNames returns the names of all reported segments, in report order.
func (f *FinancialFacts) SegmentNames() []string {
	names := make([]string, 0, len(f.Segments))
	for _, s := range f.Segments {
		names = append(names, s.Name)
	}
	return names
}

// Float64 returns a pointer to v. Convenience for building fact literals.
func Float64(v float64) *float64 {
	return &v
}
