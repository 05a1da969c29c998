package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/finreport-cli/internal/cost"
	"github.com/sells-group/finreport-cli/internal/model"
)

// FormatReport renders the final deterministic text report from a ledger's
// accumulated stage outputs. Unknown figures render as N/A; rounding happens
// here and nowhere earlier.
func FormatReport(led *model.Ledger, costCalc *cost.Calculator) string {
	var b strings.Builder

	facts := led.Facts
	metrics := led.Metrics
	narrative := led.Narrative

	formatCompanyInfo(&b, facts)
	formatBusinessModel(&b, facts)
	formatListSection(&b, "KEY INVESTOR STATEMENTS", facts.InvestorStatements)
	if narrative != nil {
		formatListSection(&b, "INVESTMENT & GROWTH AREAS", narrative.InvestmentGrowthAreas)
		if narrative.CompanyType == "holding" || narrative.CompanyType == "mixed" {
			formatListSection(&b, "HOLDING COMPANY FOCUS AREAS", narrative.HoldingFocusAreas)
		}
		formatListSection(&b, "LOSS-CAUSING AREAS", narrative.LossCausingAreas)
	}
	formatGrowthMetrics(&b, metrics)
	formatSegments(&b, facts, metrics, narrative)
	formatInvestmentAnalysis(&b, facts, metrics, narrative)
	formatDividendAnalysis(&b, facts, metrics, narrative)
	formatValuationMetrics(&b, facts, metrics)
	formatFinancialHealth(&b, metrics)
	if narrative != nil {
		formatListSection(&b, "NEW INITIATIVES", narrative.NewInitiatives)
		if narrative.InvestorSummary != "" {
			b.WriteString("INVESTOR SUMMARY:\n")
			b.WriteString(narrative.InvestorSummary)
			b.WriteString("\n\n")
		}
		formatListSection(&b, "RED FLAGS", narrative.RedFlags)
	}
	formatWarnings(&b, led.Validation)
	formatUsage(&b, led, costCalc)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// formatMetric writes one labeled figure with an N/A fallback.
func formatMetric(b *strings.Builder, label string, value *float64, format string, suffix string) {
	if value != nil {
		fmt.Fprintf(b, "- %s: "+format+"%s\n", label, *value, suffix)
	} else {
		fmt.Fprintf(b, "- %s: N/A\n", label)
	}
}

func formatListSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			b.WriteString("- " + item + "\n")
		}
	}
	b.WriteString("\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func formatCompanyInfo(b *strings.Builder, facts *model.FinancialFacts) {
	b.WriteString("COMPANY INFORMATION:\n")
	fmt.Fprintf(b, "- Company Name: %s\n", orNA(facts.CompanyName))
	fmt.Fprintf(b, "- Fiscal Year: %s\n", orNA(facts.FiscalYear))
	fmt.Fprintf(b, "- Currency: %s\n", orNA(facts.Currency))
	b.WriteString("\n")
}

func formatBusinessModel(b *strings.Builder, facts *model.FinancialFacts) {
	if len(facts.BusinessModel) == 0 {
		return
	}
	b.WriteString("BUSINESS MODEL:\n")
	for _, seg := range facts.BusinessModel {
		if seg.Name != "" && seg.Description != "" {
			fmt.Fprintf(b, "- %s: %s\n", seg.Name, seg.Description)
		}
	}
	b.WriteString("\n")
}

func formatGrowthMetrics(b *strings.Builder, m *model.DerivedMetrics) {
	b.WriteString("GROWTH METRICS:\n")
	formatMetric(b, "Revenue Growth", m.RevenueGrowthPct, "%.2f", "%")
	formatMetric(b, "Net Income Growth", m.NetIncomeGrowthPct, "%.2f", "%")
	b.WriteString("\n")
}

func formatSegments(b *strings.Builder, facts *model.FinancialFacts, m *model.DerivedMetrics, n *model.Narrative) {
	if len(m.SegmentComposition) == 0 {
		return
	}

	comments := map[string]string{}
	if n != nil {
		for _, h := range n.SegmentHighlights {
			comments[strings.ToLower(h.Name)] = h.Comment
		}
	}

	b.WriteString("SEGMENT COMPOSITION:\n")
	for _, s := range m.SegmentComposition {
		parts := []string{}
		if s.RevenuePct != nil {
			parts = append(parts, fmt.Sprintf("%.1f%% of revenue", *s.RevenuePct))
		}
		if s.OperatingIncPct != nil {
			parts = append(parts, fmt.Sprintf("%.1f%% of operating income", *s.OperatingIncPct))
		}
		line := "- " + s.Name
		if len(parts) > 0 {
			line += ": " + strings.Join(parts, ", ")
		} else {
			line += ": N/A"
		}
		if c := comments[strings.ToLower(s.Name)]; c != "" {
			line += " (" + c + ")"
		}
		b.WriteString(line + "\n")
	}

	if len(m.OtherIncomeShares) > 0 {
		b.WriteString("\nOTHER INCOME:\n")
		for _, o := range m.OtherIncomeShares {
			if o.NetIncomePct != nil {
				fmt.Fprintf(b, "- %s: %.1f%% of net income\n", o.Label, *o.NetIncomePct)
			} else {
				fmt.Fprintf(b, "- %s: N/A\n", o.Label)
			}
		}
	}
	b.WriteString("\n")
}

func formatInvestmentAnalysis(b *strings.Builder, facts *model.FinancialFacts, m *model.DerivedMetrics, n *model.Narrative) {
	b.WriteString("INVESTMENT ANALYSIS:\n")
	formatMetric(b, "Capital Expenditures", facts.CapitalExpenditures, "%.0f", "")
	formatMetric(b, "CapEx as % of Revenue", m.CapexPctRevenue, "%.2f", "%")
	trend := "N/A"
	if n != nil && n.InvestmentAnalysis.InvestmentTrend != "" {
		trend = n.InvestmentAnalysis.InvestmentTrend
	}
	fmt.Fprintf(b, "- Investment Trend: %s\n", trend)
	formatMetric(b, "EPS (Latest)", facts.EPS, "%.2f", "")
	b.WriteString("\n")
}

func formatDividendAnalysis(b *strings.Builder, facts *model.FinancialFacts, m *model.DerivedMetrics, n *model.Narrative) {
	b.WriteString("DIVIDEND ANALYSIS:\n")
	formatMetric(b, "Dividends Paid", facts.DividendsPaid, "%.0f", "")
	formatMetric(b, "Payout Ratio", m.PayoutRatio, "%.2f", "%")
	formatMetric(b, "FCF Coverage", m.FCFCoverage, "%.2f", "x")
	strategy := "N/A"
	if n != nil && n.DividendAnalysis.Strategy != "" {
		strategy = n.DividendAnalysis.Strategy
	}
	fmt.Fprintf(b, "- Strategy: %s\n", strategy)

	if n != nil {
		if len(n.DividendAnalysis.DividendStatements) > 0 {
			b.WriteString("\n")
			formatListSection(b, "Dividend Policy Statements", n.DividendAnalysis.DividendStatements)
		}
		if strings.TrimSpace(n.DividendAnalysis.Explanation) != "" {
			b.WriteString("\nDividend Explanation: " + n.DividendAnalysis.Explanation + "\n")
		}
	}
	b.WriteString("\n")
}

func formatValuationMetrics(b *strings.Builder, facts *model.FinancialFacts, m *model.DerivedMetrics) {
	b.WriteString("VALUATION METRICS:\n")
	formatMetric(b, "Shares Outstanding", m.SharesOutstanding, "%.0f", "")
	formatMetric(b, "Market Capitalization", m.MarketCap, "%.0f", "")
	formatMetric(b, "P/E Ratio", m.PERatio, "%.2f", "")

	bookValue := facts.BookValuePerShare
	if bookValue == nil {
		bookValue = m.BookValuePerShare
	}
	formatMetric(b, "Book Value per Share", bookValue, "%.2f", "")

	formatMetric(b, "P/B Ratio", m.PBRatio, "%.2f", "")
	formatMetric(b, "P/S Ratio", m.PSRatio, "%.2f", "")
	formatMetric(b, "EPS", facts.EPS, "%.2f", "")
	formatMetric(b, "EV/EBITDA", m.EVEBITDA, "%.2f", "")
	formatMetric(b, "FCF Yield", m.FCFYield, "%.2f", "%")
	b.WriteString("\n")
}

func formatFinancialHealth(b *strings.Builder, m *model.DerivedMetrics) {
	b.WriteString("FINANCIAL HEALTH:\n")
	formatMetric(b, "Working Capital", m.WorkingCapital, "%.0f", "")
	formatMetric(b, "Cash per Share", m.CashPerShare, "%.2f", "")
	formatMetric(b, "Debt-to-Assets Ratio", m.DebtToAssets, "%.3f", "")
	formatMetric(b, "Quick Ratio", m.QuickRatio, "%.2f", "")
	formatMetric(b, "Gross Margin", m.GrossMarginPct, "%.2f", "%")
	formatMetric(b, "Interest Coverage", m.InterestCoverage, "%.2f", "x")
	b.WriteString("\n")
}

func formatWarnings(b *strings.Builder, v *model.ValidationResult) {
	if v == nil {
		return
	}
	warnings := v.Warnings()
	if len(warnings) == 0 {
		return
	}
	b.WriteString("CONSISTENCY WARNINGS:\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "- %s: %s\n", w.Field, w.Message)
	}
	b.WriteString("\n")
}

func formatUsage(b *strings.Builder, led *model.Ledger, costCalc *cost.Calculator) {
	usage := led.TotalUsage()
	b.WriteString("USAGE:\n")
	fmt.Fprintf(b, "- Tokens: %d input, %d output\n", usage.InputTokens, usage.OutputTokens)
	if costCalc != nil {
		fmt.Fprintf(b, "- Estimated cost: $%.4f\n", costCalc.Run(led))
	}
	for _, s := range led.Stages {
		fmt.Fprintf(b, "- %s: %d tokens (%dms)\n",
			s.Stage, s.Usage.Total(), s.FinishedAt.Sub(s.StartedAt).Milliseconds())
	}
}
