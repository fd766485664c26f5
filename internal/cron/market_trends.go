package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/proplens/backend/internal/models"
)

// Scheduler runs the recurring aggregation jobs.
type Scheduler struct {
	cron   *cron.Cron
	db     *gorm.DB
	logger *logrus.Logger
}

func NewScheduler(db *gorm.DB, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		logger: logger,
	}
}

// Start registers the jobs and starts the scheduler. The trend
// aggregation runs nightly at 02:00 server time.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.AggregateMarketTrends(ctx); err != nil {
			s.logger.WithError(err).Error("market trend aggregation failed")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

type localityAggregate struct {
	City            string
	Locality        string
	AvgPricePerSqft float64
	ListingCount    int
}

// AggregateMarketTrends recomputes the current quarter's per-locality
// averages from the live listings. Rows are upserted so reruns within
// a quarter refresh rather than duplicate.
func (s *Scheduler) AggregateMarketTrends(ctx context.Context) error {
	now := time.Now()
	year := now.Year()
	quarter := int(now.Month()-1)/3 + 1

	var aggregates []localityAggregate
	err := s.db.WithContext(ctx).
		Model(&models.Property{}).
		Select("city, locality, AVG(price_per_sqft) AS avg_price_per_sqft, COUNT(*) AS listing_count").
		Where("price_per_sqft > 0").
		Group("city, locality").
		Scan(&aggregates).Error
	if err != nil {
		return err
	}

	for _, agg := range aggregates {
		trend := models.MarketTrend{
			City:              agg.City,
			Locality:          agg.Locality,
			Year:              year,
			Quarter:           quarter,
			AvgPricePerSqft:   agg.AvgPricePerSqft,
			TransactionVolume: agg.ListingCount,
			DataSource:        "listings_aggregate",
		}

		err := s.db.WithContext(ctx).
			Where(&models.MarketTrend{
				City:     agg.City,
				Locality: agg.Locality,
				Year:     year,
				Quarter:  quarter,
			}).
			Assign(map[string]interface{}{
				"avg_price_per_sqft": trend.AvgPricePerSqft,
				"transaction_volume": trend.TransactionVolume,
				"data_source":        trend.DataSource,
			}).
			FirstOrCreate(&trend).Error
		if err != nil {
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"localities": len(aggregates),
		"year":       year,
		"quarter":    quarter,
	}).Info("market trends aggregated")
	return nil
}
