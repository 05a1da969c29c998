// Package calc derives investor metrics from extracted financial facts.
// Everything here is pure: no I/O, no randomness, and no fabricated values.
// A metric whose inputs are unknown, or whose denominator is unknown or zero,
// stays nil. Rounding happens at presentation time, never here.
package calc

import (
	"math"

	"github.com/sells-group/finreport-cli/internal/model"
)

// Derive computes all metrics obtainable from facts and the observed stock
// price. stockPrice may be nil when no quote is available; price-dependent
// metrics then stay unknown.
func Derive(facts *model.FinancialFacts, stockPrice *float64) *model.DerivedMetrics {
	m := &model.DerivedMetrics{}

	deriveShareMetrics(facts, m, stockPrice)
	deriveValuationMetrics(facts, m, stockPrice)
	deriveGrowthMetrics(facts, m)
	deriveHealthMetrics(facts, m)
	deriveComposition(facts, m)

	return m
}

func deriveShareMetrics(f *model.FinancialFacts, m *model.DerivedMetrics, price *float64) {
	// Shares outstanding can be implied from net income and EPS when the
	// document does not state it.
	if f.SharesOutstanding == nil {
		m.SharesOutstanding = ratio(f.NetIncome, f.EPS)
	} else {
		m.SharesOutstanding = f.SharesOutstanding
	}

	shares := m.SharesOutstanding

	m.MarketCap = product(price, shares)

	if f.BookValuePerShare != nil {
		m.BookValuePerShare = f.BookValuePerShare
	} else {
		m.BookValuePerShare = ratio(f.ShareholdersEquity, shares)
	}

	m.CashPerShare = ratio(f.Cash, shares)
}

func deriveValuationMetrics(f *model.FinancialFacts, m *model.DerivedMetrics, price *float64) {
	m.PERatio = ratio(price, f.EPS)
	m.PBRatio = ratio(price, m.BookValuePerShare)
	m.PSRatio = ratio(m.MarketCap, f.Revenue.Current)

	// Enterprise value requires market cap, debt, and cash all known.
	if m.MarketCap != nil && f.TotalDebt != nil && f.Cash != nil {
		ev := *m.MarketCap + *f.TotalDebt - *f.Cash
		m.EVEBITDA = ratio(&ev, f.EBITDA)
	}

	m.FCFYield = pct(f.FreeCashFlow, m.MarketCap)
}

func deriveGrowthMetrics(f *model.FinancialFacts, m *model.DerivedMetrics) {
	m.RevenueGrowthPct = growthPct(f.Revenue.Current, f.Revenue.Previous)
	m.NetIncomeGrowthPct = growthPct(f.NetIncome, f.NetIncomePrevious)
}

func deriveHealthMetrics(f *model.FinancialFacts, m *model.DerivedMetrics) {
	revenue := f.Revenue.Current

	m.ROE = pct(f.NetIncome, f.ShareholdersEquity)
	m.ROA = pct(f.NetIncome, f.TotalAssets)
	m.DebtToEquity = ratio(f.TotalDebt, f.ShareholdersEquity)
	m.DebtToAssets = ratio(f.TotalDebt, f.TotalAssets)
	m.CurrentRatio = ratio(f.CurrentAssets, f.CurrentLiabilities)
	m.OperatingMargin = pct(f.OperatingIncome, revenue)
	m.NetMargin = pct(f.NetIncome, revenue)
	m.InterestCoverage = ratio(f.OperatingIncome, f.InterestExpense)

	if f.CurrentAssets != nil && f.CurrentLiabilities != nil {
		wc := *f.CurrentAssets - *f.CurrentLiabilities
		m.WorkingCapital = &wc
	}

	// Quick ratio uses cash + receivables when both are stated; receivables
	// alone when cash is unknown.
	if f.AccountsReceivable != nil {
		quick := *f.AccountsReceivable
		if f.Cash != nil {
			quick += *f.Cash
		}
		m.QuickRatio = ratio(&quick, f.CurrentLiabilities)
	}

	if f.COGS != nil && revenue != nil && *revenue > 0 {
		gm := (*revenue - *f.COGS) / *revenue * 100
		m.GrossMarginPct = &gm
	}

	if f.CapitalExpenditures != nil && revenue != nil && *revenue > 0 {
		capex := math.Abs(*f.CapitalExpenditures) / *revenue * 100
		m.CapexPctRevenue = &capex
	}

	m.PayoutRatio = pct(f.DividendsPaid, f.NetIncome)

	if f.DividendsPaid != nil && f.FreeCashFlow != nil && *f.DividendsPaid != 0 {
		cov := *f.FreeCashFlow / math.Abs(*f.DividendsPaid)
		m.FCFCoverage = &cov
	}
}

// deriveComposition computes each segment's contribution to company totals
// and each itemized other-income line's share of net income. Composition is
// computed only from figures explicitly reported; an empty itemization
// yields an empty composition.
func deriveComposition(f *model.FinancialFacts, m *model.DerivedMetrics) {
	revenue := f.Revenue.Current
	for _, seg := range f.Segments {
		share := model.SegmentShare{Name: seg.Name}
		share.RevenuePct = pct(seg.Revenue, revenue)
		share.OperatingIncPct = pct(seg.OperatingIncome, f.OperatingIncome)
		m.SegmentComposition = append(m.SegmentComposition, share)
	}

	for _, item := range f.OtherIncomeItems {
		m.OtherIncomeShares = append(m.OtherIncomeShares, model.OtherIncomeShare{
			Label:        item.Label,
			NetIncomePct: pct(item.Amount, f.NetIncome),
		})
	}
}

// ratio returns num/den, or nil when either side is unknown or den is not a
// positive divisor.
func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den <= 0 {
		return nil
	}
	v := *num / *den
	return &v
}

// pct returns num/den as a percentage under the same unknown rules as ratio.
func pct(num, den *float64) *float64 {
	r := ratio(num, den)
	if r == nil {
		return nil
	}
	v := *r * 100
	return &v
}

// product multiplies two known values.
func product(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}

// growthPct returns period-over-period growth, nil unless both periods are
// known and the prior period is positive.
func growthPct(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous <= 0 {
		return nil
	}
	v := (*current - *previous) / *previous * 100
	return &v
}
