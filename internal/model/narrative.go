package model

// SegmentHighlight is narrative commentary on one business segment. The
// Analyze stage may only reference segments present in the extracted facts.
type SegmentHighlight struct {
	Name    string `json:"name" validate:"required"`
	Comment string `json:"comment"`
}

// DividendAnalysis is the narrative's dividend commentary.
type DividendAnalysis struct {
	Strategy           string   `json:"strategy"`
	DividendStatements []string `json:"dividend_statements"`
	Explanation        string   `json:"explanation"`
}

// InvestmentAnalysis is the narrative's capital-investment commentary.
type InvestmentAnalysis struct {
	InvestmentTrend string `json:"investment_trend"`
}

// Narrative is the structured payload produced by the Analyze stage.
type Narrative struct {
	CompanyType           string             `json:"company_type" validate:"required,oneof=operating holding mixed"`
	InvestorSummary       string             `json:"investor_summary"`
	InvestmentGrowthAreas []string           `json:"investment_growth_areas"`
	HoldingFocusAreas     []string           `json:"holding_focus_areas"`
	LossCausingAreas      []string           `json:"loss_causing_areas"`
	NewInitiatives        []string           `json:"new_initiatives"`
	RedFlags              []string           `json:"red_flags"`
	SegmentHighlights     []SegmentHighlight `json:"segment_highlights" validate:"dive"`
	DividendAnalysis      DividendAnalysis   `json:"dividend_analysis"`
	InvestmentAnalysis    InvestmentAnalysis `json:"investment_analysis"`
}
