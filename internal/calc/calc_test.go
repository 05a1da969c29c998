package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finreport-cli/internal/model"
)

func TestDerive_ImpliedSharesOutstanding(t *testing.T) {
	facts := &model.FinancialFacts{
		CompanyName: "Engro Corporation",
		Revenue:     model.YearPair{Current: model.Float64(1_000_000_000), Previous: model.Float64(950_000_000)},
		NetIncome:   model.Float64(150_000_000),
		EPS:         model.Float64(3.50),
	}

	m := Derive(facts, nil)

	require.NotNil(t, m.SharesOutstanding)
	assert.InDelta(t, 42_857_142.857, *m.SharesOutstanding, 1.0)

	require.NotNil(t, m.RevenueGrowthPct)
	assert.InDelta(t, 5.263, *m.RevenueGrowthPct, 0.001)
}

func TestDerive_StatedSharesPreferred(t *testing.T) {
	facts := &model.FinancialFacts{
		NetIncome:         model.Float64(150_000_000),
		EPS:               model.Float64(3.50),
		SharesOutstanding: model.Float64(40_000_000),
	}

	m := Derive(facts, nil)

	require.NotNil(t, m.SharesOutstanding)
	assert.Equal(t, 40_000_000.0, *m.SharesOutstanding)
}

func TestDerive_UnknownDenominatorStaysUnknown(t *testing.T) {
	// Shares outstanding cannot be implied: EPS missing. Everything that
	// depends on shares must stay nil, never zero.
	facts := &model.FinancialFacts{
		NetIncome:          model.Float64(150_000_000),
		ShareholdersEquity: model.Float64(800_000_000),
		Cash:               model.Float64(90_000_000),
	}
	price := model.Float64(120)

	m := Derive(facts, price)

	assert.Nil(t, m.SharesOutstanding)
	assert.Nil(t, m.MarketCap)
	assert.Nil(t, m.BookValuePerShare)
	assert.Nil(t, m.CashPerShare)
	assert.Nil(t, m.PBRatio)
	assert.Nil(t, m.PSRatio)
}

func TestDerive_ZeroDenominator(t *testing.T) {
	facts := &model.FinancialFacts{
		NetIncome:          model.Float64(150_000_000),
		EPS:                model.Float64(0),
		Revenue:            model.YearPair{Current: model.Float64(0)},
		OperatingIncome:    model.Float64(50_000_000),
		ShareholdersEquity: model.Float64(0),
	}

	m := Derive(facts, model.Float64(100))

	assert.Nil(t, m.SharesOutstanding, "zero EPS is not a divisor")
	assert.Nil(t, m.ROE, "zero equity is not a divisor")
	assert.Nil(t, m.OperatingMargin, "zero revenue is not a divisor")
}

func TestDerive_ValuationMetrics(t *testing.T) {
	facts := &model.FinancialFacts{
		Revenue:           model.YearPair{Current: model.Float64(1_000_000_000)},
		NetIncome:         model.Float64(150_000_000),
		EPS:               model.Float64(3.50),
		SharesOutstanding: model.Float64(42_857_143),
		EBITDA:            model.Float64(260_000_000),
		Cash:              model.Float64(100_000_000),
		TotalDebt:         model.Float64(400_000_000),
		FreeCashFlow:      model.Float64(150_000_000),
	}
	price := model.Float64(52.50)

	m := Derive(facts, price)

	require.NotNil(t, m.PERatio)
	assert.InDelta(t, 15.0, *m.PERatio, 0.001)

	require.NotNil(t, m.MarketCap)
	assert.InDelta(t, 2_250_000_007.5, *m.MarketCap, 10)

	require.NotNil(t, m.EVEBITDA)
	// EV = 2.25e9 + 4e8 - 1e8 = 2.55e9; EV/EBITDA ≈ 9.81
	assert.InDelta(t, 9.808, *m.EVEBITDA, 0.01)

	require.NotNil(t, m.FCFYield)
	assert.InDelta(t, 6.667, *m.FCFYield, 0.01)
}

func TestDerive_EVRequiresCashKnown(t *testing.T) {
	facts := &model.FinancialFacts{
		SharesOutstanding: model.Float64(1_000_000),
		EBITDA:            model.Float64(10_000_000),
		TotalDebt:         model.Float64(5_000_000),
		// Cash unknown: EV cannot be formed.
	}

	m := Derive(facts, model.Float64(10))

	assert.Nil(t, m.EVEBITDA)
}

func TestDerive_HealthMetrics(t *testing.T) {
	facts := &model.FinancialFacts{
		Revenue:             model.YearPair{Current: model.Float64(1_000_000_000)},
		COGS:                model.Float64(600_000_000),
		NetIncome:           model.Float64(150_000_000),
		OperatingIncome:     model.Float64(200_000_000),
		InterestExpense:     model.Float64(40_000_000),
		TotalAssets:         model.Float64(2_000_000_000),
		ShareholdersEquity:  model.Float64(800_000_000),
		CurrentAssets:       model.Float64(500_000_000),
		CurrentLiabilities:  model.Float64(250_000_000),
		AccountsReceivable:  model.Float64(120_000_000),
		Cash:                model.Float64(90_000_000),
		TotalDebt:           model.Float64(400_000_000),
		CapitalExpenditures: model.Float64(-60_000_000),
		DividendsPaid:       model.Float64(-45_000_000),
		FreeCashFlow:        model.Float64(150_000_000),
	}

	m := Derive(facts, nil)

	require.NotNil(t, m.GrossMarginPct)
	assert.InDelta(t, 40.0, *m.GrossMarginPct, 0.001)

	require.NotNil(t, m.CurrentRatio)
	assert.InDelta(t, 2.0, *m.CurrentRatio, 0.001)

	require.NotNil(t, m.QuickRatio)
	assert.InDelta(t, 0.84, *m.QuickRatio, 0.001)

	require.NotNil(t, m.WorkingCapital)
	assert.InDelta(t, 250_000_000, *m.WorkingCapital, 0.1)

	require.NotNil(t, m.CapexPctRevenue)
	assert.InDelta(t, 6.0, *m.CapexPctRevenue, 0.001, "capex share uses magnitude")

	require.NotNil(t, m.InterestCoverage)
	assert.InDelta(t, 5.0, *m.InterestCoverage, 0.001)

	require.NotNil(t, m.FCFCoverage)
	assert.InDelta(t, 150.0/45.0, *m.FCFCoverage, 0.001)
}

func TestDerive_SegmentComposition(t *testing.T) {
	facts := &model.FinancialFacts{
		Revenue:         model.YearPair{Current: model.Float64(1_000_000_000)},
		OperatingIncome: model.Float64(200_000_000),
		NetIncome:       model.Float64(150_000_000),
		Segments: []model.Segment{
			{Name: "Fertilizers", Revenue: model.Float64(600_000_000), OperatingIncome: model.Float64(90_000_000)},
			{Name: "Polymers", Revenue: model.Float64(400_000_000)},
		},
		OtherIncomeItems: []model.OtherIncomeItem{
			{Label: "Dividend income from associates", Amount: model.Float64(30_000_000)},
		},
	}

	m := Derive(facts, nil)

	require.Len(t, m.SegmentComposition, 2)
	assert.InDelta(t, 60.0, *m.SegmentComposition[0].RevenuePct, 0.001)
	assert.InDelta(t, 45.0, *m.SegmentComposition[0].OperatingIncPct, 0.001)
	assert.InDelta(t, 40.0, *m.SegmentComposition[1].RevenuePct, 0.001)
	assert.Nil(t, m.SegmentComposition[1].OperatingIncPct, "unreported segment income stays unknown")

	require.Len(t, m.OtherIncomeShares, 1)
	assert.InDelta(t, 20.0, *m.OtherIncomeShares[0].NetIncomePct, 0.001)
}

func TestDerive_EmptySegmentsYieldEmptyComposition(t *testing.T) {
	facts := &model.FinancialFacts{
		Revenue: model.YearPair{Current: model.Float64(1_000_000_000)},
	}

	m := Derive(facts, nil)

	assert.Empty(t, m.SegmentComposition)
	assert.Empty(t, m.OtherIncomeShares)
}

func TestDerive_NoInterpolationAcrossPeriods(t *testing.T) {
	// Previous-period revenue alone must not produce growth.
	facts := &model.FinancialFacts{
		Revenue: model.YearPair{Previous: model.Float64(950_000_000)},
	}

	m := Derive(facts, nil)

	assert.Nil(t, m.RevenueGrowthPct)
}
