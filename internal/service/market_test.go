package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proplens/backend/internal/models"
	"github.com/proplens/backend/internal/service"
	"github.com/proplens/backend/internal/testhelpers"
)

func TestMarketTrends(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	market := service.NewMarketService(db)

	seed := []models.MarketTrend{
		{City: "Bengaluru", Locality: "Indiranagar", Year: 2025, Quarter: 4, AvgPricePerSqft: 14800},
		{City: "Bengaluru", Locality: "Indiranagar", Year: 2026, Quarter: 1, AvgPricePerSqft: 15100},
		{City: "Bengaluru", Locality: "Indiranagar", Year: 2026, Quarter: 2, AvgPricePerSqft: 15400},
		{City: "Bengaluru", Locality: "Whitefield", Year: 2026, Quarter: 2, AvgPricePerSqft: 9800},
		{City: "Mumbai", Locality: "Bandra", Year: 2026, Quarter: 2, AvgPricePerSqft: 52000},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	_, err := market.Trends(context.Background(), "", "")
	assert.ErrorIs(t, err, service.ErrValidation)

	trends, err := market.Trends(context.Background(), "Bengaluru", "")
	require.NoError(t, err)
	assert.Len(t, trends, 4)
	// Newest quarter first.
	assert.Equal(t, 2026, trends[0].Year)
	assert.Equal(t, 2, trends[0].Quarter)

	trends, err = market.Trends(context.Background(), "Bengaluru", "Indiranagar")
	require.NoError(t, err)
	require.Len(t, trends, 3)
	assert.Equal(t, 15400.0, trends[0].AvgPricePerSqft)
}

func TestInvestmentPicks(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	market := service.NewMarketService(db)

	picks := []models.InvestmentPick{
		{Locality: "Whitefield", City: "Bengaluru", Description: "IT corridor", CurrentPricePerSqft: 9800, ProjectedRoiPercent: 14.5, Active: true},
		{Locality: "Koramangala", City: "Bengaluru", Description: "Rental demand", CurrentPricePerSqft: 13900, ProjectedRoiPercent: 9.0, Active: true},
		{Locality: "Old Airport Rd", City: "Bengaluru", Description: "Retired pick", CurrentPricePerSqft: 12000, ProjectedRoiPercent: 20.0, Active: true},
	}
	for i := range picks {
		require.NoError(t, db.Create(&picks[i]).Error)
	}
	require.NoError(t, db.Model(&picks[2]).Update("active", false).Error)

	active, err := market.InvestmentPicks(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Highest projected ROI first; inactive picks never surface.
	assert.Equal(t, "Whitefield", active[0].Locality)
	assert.Equal(t, "Koramangala", active[1].Locality)
}
