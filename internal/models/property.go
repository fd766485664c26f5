package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONStringArray stores a string list as a JSON column.
type JSONStringArray []string

func (a JSONStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONStringArray{}
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

	return json.Unmarshal(bytes, a)
}

// Property rows are hard-deleted; dependent analyses and saved rows go
// with them.
type Property struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ExternalID       *string         `gorm:"size:100;uniqueIndex" json:"external_id,omitempty"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	PropertyType     string          `gorm:"size:50;not null" json:"property_type"`
	Location         string          `gorm:"size:255;not null" json:"location"`
	City             string          `gorm:"size:100;not null;index" json:"city"`
	Locality         string          `gorm:"size:100;not null" json:"locality"`
	Address          string          `gorm:"size:255" json:"address"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	Price            float64         `gorm:"not null" json:"price"`
	PricePerSqft     float64         `json:"price_per_sqft"`
	AreaSqft         float64         `gorm:"not null" json:"area_sqft"`
	Bedrooms         *int            `json:"bedrooms"`
	Bathrooms        *int            `json:"bathrooms"`
	FurnishingStatus string          `gorm:"size:50" json:"furnishing_status"`
	FloorNumber      *int            `json:"floor_number"`
	TotalFloors      *int            `json:"total_floors"`
	AgeYears         *int            `json:"age_years"`
	Amenities        JSONStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"amenities"`

	Analyses []PropertyAnalysis `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	SavedBy  []SavedProperty    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

type SavedProperty struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_saved_user_property" json:"user_id"`
	PropertyID uint            `gorm:"not null;uniqueIndex:idx_saved_user_property" json:"property_id"`
	Notes      string          `gorm:"type:text" json:"notes"`
	Tags       JSONStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	SavedAt    time.Time       `gorm:"not null" json:"saved_at"`

	User     User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Property Property `json:"property" gorm:"constraint:OnDelete:CASCADE"`
}
