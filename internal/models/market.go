package models

import "time"

// MarketTrend holds city/locality-level pricing aggregates. Rows are
// produced by the trend aggregation job, never written by request paths.
type MarketTrend struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	City              string    `gorm:"size:100;not null;index" json:"city"`
	Locality          string    `gorm:"size:100" json:"locality"`
	Year              int       `gorm:"not null" json:"year"`
	Quarter           int       `json:"quarter"`
	AvgPricePerSqft   float64   `gorm:"not null" json:"avg_price_per_sqft"`
	TransactionVolume int       `json:"transaction_volume"`
	SupplyMonths      float64   `json:"supply_months"`
	DemandIndex       float64   `json:"demand_index"`
	GrowthYoyPercent  float64   `json:"growth_yoy_percent"`
	DataSource        string    `gorm:"size:100" json:"data_source"`
	CreatedAt         time.Time `json:"created_at"`
}

// InvestmentPick is a curated locality recommendation.
type InvestmentPick struct {
	ID                  uint            `gorm:"primarykey" json:"id"`
	Locality            string          `gorm:"size:100;not null" json:"locality"`
	City                string          `gorm:"size:100;not null;index" json:"city"`
	Description         string          `gorm:"type:text;not null" json:"description"`
	CurrentPricePerSqft float64         `gorm:"not null" json:"current_price_per_sqft"`
	ProjectedRoiPercent float64         `gorm:"not null" json:"projected_roi_percent"`
	Tags                JSONStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	Reasoning           string          `gorm:"type:text" json:"reasoning"`
	ConfidenceScore     float64         `json:"confidence_score"`
	Active              bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
