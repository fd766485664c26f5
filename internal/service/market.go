package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/proplens/backend/internal/models"
)

// MarketService serves the read-only aggregate tables. Nothing in the
// request paths writes them; market_trends rows come from the trend
// aggregation job and investment_picks are curated data.
type MarketService struct {
	db *gorm.DB
}

func NewMarketService(db *gorm.DB) *MarketService {
	return &MarketService{db: db}
}

func (s *MarketService) Trends(ctx context.Context, city, locality string) ([]models.MarketTrend, error) {
	if city == "" {
		return nil, fmt.Errorf("%w: city is required", ErrValidation)
	}

	query := s.db.WithContext(ctx).Where("city = ?", city)
	if locality != "" {
		query = query.Where("locality = ?", locality)
	}

	var trends []models.MarketTrend
	if err := query.Order("year DESC, quarter DESC").Find(&trends).Error; err != nil {
		return nil, err
	}
	return trends, nil
}

func (s *MarketService) InvestmentPicks(ctx context.Context) ([]models.InvestmentPick, error) {
	var picks []models.InvestmentPick
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("projected_roi_percent DESC").
		Find(&picks).Error
	if err != nil {
		return nil, err
	}
	return picks, nil
}
