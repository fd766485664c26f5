package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Valuation statuses derived from comparing asking price to the estimated
// fair-value range.
const (
	ValuationUndervalued = "undervalued"
	ValuationFair        = "fair"
	ValuationOvervalued  = "overvalued"
)

// Factor is one risk or growth consideration from the AI valuation.
// Severity applies to risk factors, Impact to growth factors; each carries
// one of low/medium/high.
type Factor struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
	Impact      string `json:"impact,omitempty"`
}

// FactorList stores factors as a JSON column.
type FactorList []Factor

func (l FactorList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *FactorList) Scan(value interface{}) error {
	if value == nil {
		*l = FactorList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// PropertyAnalysis is an immutable valuation snapshot. PropertyID is nil
// for ad-hoc analyses that were never attached to a stored listing. The
// "current" analysis of a property is the row with the latest AnalyzedAt.
type PropertyAnalysis struct {
	ID                       uint       `gorm:"primarykey" json:"id"`
	PropertyID               *uint      `gorm:"index" json:"property_id"`
	UserID                   uint       `gorm:"not null;index" json:"user_id"`
	FairMarketValueMin       float64    `gorm:"not null" json:"fair_market_value_min"`
	FairMarketValueMax       float64    `gorm:"not null" json:"fair_market_value_max"`
	ConfidenceScore          float64    `gorm:"not null" json:"confidence_score"`
	ValuationStatus          string     `gorm:"size:20;not null" json:"valuation_status"`
	PriceAdvantagePercent    float64    `json:"price_advantage_percent"`
	AISummary                string     `gorm:"type:text" json:"ai_summary"`
	RiskFactors              FactorList `gorm:"type:jsonb;not null;default:'[]'" json:"risk_factors"`
	GrowthFactors            FactorList `gorm:"type:jsonb;not null;default:'[]'" json:"growth_factors"`
	RentalYieldPercent       float64    `json:"rental_yield_percent"`
	Projected5yGrowthPercent float64    `json:"projected_5y_growth_percent"`
	LivabilityScore          float64    `json:"livability_score"`
	InfrastructureScore      float64    `json:"infrastructure_score"`
	ConnectivityScore        float64    `json:"connectivity_score"`
	MicroMarketAvgPrice      float64    `json:"micro_market_avg_price"`
	MacroMarketAvgPrice      float64    `json:"macro_market_avg_price"`
	AnalyzedAt               time.Time  `gorm:"not null;index" json:"analyzed_at"`

	User User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
