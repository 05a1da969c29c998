// Package consistency cross-validates extracted facts against each other and
// against calculated metrics. It never mutates its inputs; it only produces
// findings. Warnings are surfaced in the final report, contradictions fail
// the run.
package consistency

import (
	"fmt"
	"math"

	"github.com/sells-group/finreport-cli/internal/model"
)

// Config holds the tolerance bands used to separate rounding noise from a
// genuine contradiction. Tolerances are fractions of the relevant base
// figure; absoluteFloor protects tiny-denominator statements from spurious
// contradictions.
type Config struct {
	BalanceSheetTolerance float64 `mapstructure:"balance_sheet_tolerance"`
	CashFlowTolerance     float64 `mapstructure:"cash_flow_tolerance"`
	NetIncomeTolerance    float64 `mapstructure:"net_income_tolerance"`
	FCFTolerance          float64 `mapstructure:"fcf_tolerance"`
	AbsoluteFloor         float64 `mapstructure:"absolute_floor"`
}

// DefaultConfig returns the tolerance bands used when none are configured.
func DefaultConfig() Config {
	return Config{
		BalanceSheetTolerance: 0.01,
		CashFlowTolerance:     0.01,
		NetIncomeTolerance:    0.01,
		FCFTolerance:          0.01,
		AbsoluteFloor:         1000,
	}
}

// criticalFacts are the figures an analysis is weak without. Their absence is
// reported but does not fail the run: an unknown is a legitimate extraction
// outcome, not a contradiction.
var criticalFacts = []string{
	"revenue",
	"net_income",
	"total_assets",
	"total_liabilities",
	"shareholders_equity",
	"operating_cash_flow",
	"free_cash_flow",
}

// Checker runs all cross-statement consistency checks.
type Checker struct {
	cfg Config
}

// New creates a Checker with the given tolerance configuration.
func New(cfg Config) *Checker {
	return &Checker{cfg: cfg}
}

// Check runs every consistency check over the extracted facts. The returned
// result annotates; it never alters upstream data.
func (c *Checker) Check(facts *model.FinancialFacts) model.ValidationResult {
	var res model.ValidationResult

	res.Findings = append(res.Findings, c.checkCriticalFacts(facts)...)
	if f := c.checkBalanceSheet(facts); f != nil {
		res.Findings = append(res.Findings, *f)
	}
	if f := c.checkCashFlowReconciliation(facts); f != nil {
		res.Findings = append(res.Findings, *f)
	}
	if f := c.checkNetIncomeConsistency(facts); f != nil {
		res.Findings = append(res.Findings, *f)
	}
	if f := c.checkFreeCashFlow(facts); f != nil {
		res.Findings = append(res.Findings, *f)
	}

	return res
}

func (c *Checker) checkCriticalFacts(facts *model.FinancialFacts) []model.Finding {
	present := map[string]bool{
		"revenue":             facts.Revenue.Current != nil,
		"net_income":          facts.NetIncome != nil,
		"total_assets":        facts.TotalAssets != nil,
		"total_liabilities":   facts.TotalLiabilities != nil,
		"shareholders_equity": facts.ShareholdersEquity != nil,
		"operating_cash_flow": facts.OperatingCashFlow != nil,
		"free_cash_flow":      facts.FreeCashFlow != nil,
	}

	var findings []model.Finding
	for _, name := range criticalFacts {
		if !present[name] {
			findings = append(findings, model.Finding{
				Field:    name,
				Message:  fmt.Sprintf("critical figure %s not stated in source document", name),
				Severity: model.SeverityWarning,
			})
		}
	}
	return findings
}

// checkBalanceSheet verifies Assets = Liabilities + Equity.
func (c *Checker) checkBalanceSheet(facts *model.FinancialFacts) *model.Finding {
	if facts.TotalAssets == nil || facts.TotalLiabilities == nil || facts.ShareholdersEquity == nil {
		return nil // absence already reported by the critical-facts check
	}

	impliedEquity := *facts.TotalAssets - *facts.TotalLiabilities
	diff := math.Abs(*facts.ShareholdersEquity - impliedEquity)
	tol := c.tolerance(*facts.TotalAssets, c.cfg.BalanceSheetTolerance)

	if diff > tol {
		return &model.Finding{
			Field: "balance_sheet",
			Message: fmt.Sprintf(
				"balance sheet does not balance: assets %.0f != liabilities %.0f + equity %.0f (difference %.0f, tolerance %.0f)",
				*facts.TotalAssets, *facts.TotalLiabilities, *facts.ShareholdersEquity, diff, tol),
			Severity: model.SeverityContradiction,
		}
	}
	return nil
}

// checkCashFlowReconciliation verifies beginning cash + net change = ending cash.
func (c *Checker) checkCashFlowReconciliation(facts *model.FinancialFacts) *model.Finding {
	if facts.BeginningCash == nil || facts.NetChangeCash == nil || facts.EndingCash == nil {
		return nil
	}

	implied := *facts.BeginningCash + *facts.NetChangeCash
	diff := math.Abs(*facts.EndingCash - implied)
	tol := c.tolerance(*facts.BeginningCash, c.cfg.CashFlowTolerance)

	if diff > tol {
		return &model.Finding{
			Field: "cash_flow",
			Message: fmt.Sprintf(
				"cash flow does not reconcile: beginning %.0f + net change %.0f != ending %.0f (difference %.0f)",
				*facts.BeginningCash, *facts.NetChangeCash, *facts.EndingCash, diff),
			Severity: model.SeverityContradiction,
		}
	}
	return nil
}

// checkNetIncomeConsistency compares net income as stated on the income
// statement against the cash flow statement's starting figure. Differences
// are common (non-controlling interests, restatements) so this is a warning.
func (c *Checker) checkNetIncomeConsistency(facts *model.FinancialFacts) *model.Finding {
	if facts.NetIncome == nil || facts.CashFlowNetIncome == nil {
		return nil
	}

	diff := math.Abs(*facts.NetIncome - *facts.CashFlowNetIncome)
	tol := c.tolerance(*facts.NetIncome, c.cfg.NetIncomeTolerance)

	if diff > tol {
		return &model.Finding{
			Field: "net_income",
			Message: fmt.Sprintf(
				"net income mismatch across statements: income statement %.0f vs cash flow statement %.0f",
				*facts.NetIncome, *facts.CashFlowNetIncome),
			Severity: model.SeverityWarning,
		}
	}
	return nil
}

// checkFreeCashFlow verifies the reported FCF against operating cash flow
// minus the magnitude of capital expenditures.
func (c *Checker) checkFreeCashFlow(facts *model.FinancialFacts) *model.Finding {
	if facts.OperatingCashFlow == nil || facts.CapitalExpenditures == nil || facts.FreeCashFlow == nil {
		return nil
	}

	implied := *facts.OperatingCashFlow - math.Abs(*facts.CapitalExpenditures)
	diff := math.Abs(*facts.FreeCashFlow - implied)
	tol := c.tolerance(*facts.OperatingCashFlow, c.cfg.FCFTolerance)

	if diff > tol {
		return &model.Finding{
			Field: "free_cash_flow",
			Message: fmt.Sprintf(
				"reported free cash flow %.0f contradicts operating cash flow %.0f - |capex %.0f| = %.0f (difference %.0f, tolerance %.0f)",
				*facts.FreeCashFlow, *facts.OperatingCashFlow, *facts.CapitalExpenditures, implied, diff, tol),
			Severity: model.SeverityContradiction,
		}
	}
	return nil
}

// tolerance scales a fractional tolerance by the base figure's magnitude,
// bounded below by the absolute floor.
func (c *Checker) tolerance(base, fraction float64) float64 {
	t := math.Abs(base) * fraction
	if t < c.cfg.AbsoluteFloor {
		return c.cfg.AbsoluteFloor
	}
	return t
}
