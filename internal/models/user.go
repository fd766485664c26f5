package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription tiers. New accounts always start on the free tier.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	Email            string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username         string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash     string         `gorm:"not null" json:"-"`
	FirstName        string         `gorm:"size:100" json:"first_name"`
	LastName         string         `gorm:"size:100" json:"last_name"`
	Brokerage        string         `gorm:"size:255" json:"brokerage"`
	SubscriptionTier string         `gorm:"size:20;not null;default:'free'" json:"subscription_tier"`
	LastLogin        *time.Time     `json:"last_login"`

	Profile *UserProfile `json:"profile,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

type UserProfile struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"size:255" json:"address"`
	City        string    `gorm:"size:100" json:"city"`
	Preferences string    `gorm:"type:text" json:"preferences"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SearchHistory struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	SearchQuery  string    `gorm:"type:text;not null" json:"search_query"`
	Filters      string    `gorm:"type:text" json:"filters"`
	ResultsCount int       `json:"results_count"`
	SearchedAt   time.Time `gorm:"not null" json:"searched_at"`

	User User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// ApiUsage meters AI-endpoint calls, one row per (user, endpoint, day).
type ApiUsage struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	UserID           uint   `gorm:"not null;uniqueIndex:idx_usage_user_endpoint_date" json:"user_id"`
	Endpoint         string `gorm:"size:100;not null;uniqueIndex:idx_usage_user_endpoint_date" json:"endpoint"`
	RequestCount     int    `gorm:"not null;default:1" json:"request_count"`
	GeminiTokensUsed int    `gorm:"not null;default:0" json:"gemini_tokens_used"`
	Date             string `gorm:"size:10;not null;uniqueIndex:idx_usage_user_endpoint_date" json:"date"`

	User User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
