// Command seed loads a small set of sample listings, market trends, and
// investment picks for local development.
package main

import (
	"github.com/sirupsen/logrus"

	"github.com/proplens/backend/config"
	"github.com/proplens/backend/internal/database"
	"github.com/proplens/backend/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	properties := []models.Property{
		{
			Title:            "3BHK Apartment in Indiranagar",
			Description:      "Spacious east-facing apartment near the metro.",
			PropertyType:     "apartment",
			Location:         "Indiranagar, Bengaluru",
			City:             "Bengaluru",
			Locality:         "Indiranagar",
			Address:          "100 Feet Road",
			Latitude:         floatPtr(12.9716),
			Longitude:        floatPtr(77.6412),
			Price:            25000000,
			PricePerSqft:     25000000.0 / 1650,
			AreaSqft:         1650,
			Bedrooms:         intPtr(3),
			Bathrooms:        intPtr(3),
			FurnishingStatus: "semi-furnished",
			FloorNumber:      intPtr(4),
			TotalFloors:      intPtr(8),
			AgeYears:         intPtr(5),
			Amenities:        models.JSONStringArray{"gym", "covered parking", "power backup"},
		},
		{
			Title:            "2BHK Flat in Koramangala",
			Description:      "Well-maintained flat in a gated community.",
			PropertyType:     "apartment",
			Location:         "Koramangala, Bengaluru",
			City:             "Bengaluru",
			Locality:         "Koramangala",
			Address:          "5th Block",
			Latitude:         floatPtr(12.9352),
			Longitude:        floatPtr(77.6245),
			Price:            15500000,
			PricePerSqft:     15500000.0 / 1150,
			AreaSqft:         1150,
			Bedrooms:         intPtr(2),
			Bathrooms:        intPtr(2),
			FurnishingStatus: "furnished",
			FloorNumber:      intPtr(2),
			TotalFloors:      intPtr(5),
			AgeYears:         intPtr(8),
			Amenities:        models.JSONStringArray{"lift", "security"},
		},
		{
			Title:            "Independent Villa in Whitefield",
			Description:      "4BHK villa with a private garden.",
			PropertyType:     "villa",
			Location:         "Whitefield, Bengaluru",
			City:             "Bengaluru",
			Locality:         "Whitefield",
			Address:          "Palm Meadows Extension",
			Latitude:         floatPtr(12.9698),
			Longitude:        floatPtr(77.7500),
			Price:            42000000,
			PricePerSqft:     42000000.0 / 3200,
			AreaSqft:         3200,
			Bedrooms:         intPtr(4),
			Bathrooms:        intPtr(5),
			FurnishingStatus: "unfurnished",
			AgeYears:         intPtr(2),
			Amenities:        models.JSONStringArray{"garden", "clubhouse", "swimming pool"},
		},
	}

	for i := range properties {
		if err := db.Create(&properties[i]).Error; err != nil {
			logger.WithError(err).WithField("title", properties[i].Title).Warn("failed to seed property")
		}
	}

	trends := []models.MarketTrend{
		{City: "Bengaluru", Locality: "Indiranagar", Year: 2026, Quarter: 2, AvgPricePerSqft: 15400, TransactionVolume: 420, GrowthYoyPercent: 8.2, DataSource: "seed"},
		{City: "Bengaluru", Locality: "Koramangala", Year: 2026, Quarter: 2, AvgPricePerSqft: 13900, TransactionVolume: 510, GrowthYoyPercent: 7.1, DataSource: "seed"},
		{City: "Bengaluru", Locality: "Whitefield", Year: 2026, Quarter: 2, AvgPricePerSqft: 9800, TransactionVolume: 890, GrowthYoyPercent: 11.4, DataSource: "seed"},
	}
	for i := range trends {
		if err := db.Create(&trends[i]).Error; err != nil {
			logger.WithError(err).Warn("failed to seed market trend")
		}
	}

	picks := []models.InvestmentPick{
		{
			Locality:            "Whitefield",
			City:                "Bengaluru",
			Description:         "IT corridor expansion keeps absorbing new supply.",
			CurrentPricePerSqft: 9800,
			ProjectedRoiPercent: 14.5,
			Tags:                models.JSONStringArray{"it-corridor", "high-growth"},
			Reasoning:           "Metro phase 3 and new tech parks are driving sustained demand.",
			ConfidenceScore:     7.5,
			Active:              true,
		},
		{
			Locality:            "Koramangala",
			City:                "Bengaluru",
			Description:         "Established locality with strong rental demand.",
			CurrentPricePerSqft: 13900,
			ProjectedRoiPercent: 9.0,
			Tags:                models.JSONStringArray{"rental-yield", "established"},
			Reasoning:           "Startup density keeps vacancy near zero.",
			ConfidenceScore:     8.0,
			Active:              true,
		},
	}
	for i := range picks {
		if err := db.Create(&picks[i]).Error; err != nil {
			logger.WithError(err).Warn("failed to seed investment pick")
		}
	}

	logger.WithFields(logrus.Fields{
		"properties": len(properties),
		"trends":     len(trends),
		"picks":      len(picks),
	}).Info("seed data loaded")
}
