package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/proplens/backend/internal/models"
)

const (
	defaultSearchLimit  = 20
	defaultNearbyRadius = 2.0 // km
	maxNearbyResults    = 10
)

type PropertyService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewPropertyService(db *gorm.DB, logger *logrus.Logger) *PropertyService {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &PropertyService{db: db, logger: logger}
}

type PropertyInput struct {
	Title            string   `json:"title" binding:"required"`
	Description      string   `json:"description"`
	PropertyType     string   `json:"property_type" binding:"required"`
	Location         string   `json:"location"`
	City             string   `json:"city" binding:"required"`
	Locality         string   `json:"locality" binding:"required"`
	Address          string   `json:"address"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Price            float64  `json:"price" binding:"required,gt=0"`
	AreaSqft         float64  `json:"area_sqft" binding:"required,gt=0"`
	Bedrooms         *int     `json:"bedrooms"`
	Bathrooms        *int     `json:"bathrooms"`
	FurnishingStatus string   `json:"furnishing_status"`
	FloorNumber      *int     `json:"floor_number"`
	TotalFloors      *int     `json:"total_floors"`
	AgeYears         *int     `json:"age_years"`
	Amenities        []string `json:"amenities"`
}

// Create inserts a listing with the derived price-per-sqft.
func (s *PropertyService) Create(ctx context.Context, in PropertyInput) (*models.Property, error) {
	if in.Location == "" {
		in.Location = fmt.Sprintf("%s, %s", in.Locality, in.City)
	}

	property := models.Property{
		Title:            in.Title,
		Description:      in.Description,
		PropertyType:     in.PropertyType,
		Location:         in.Location,
		City:             in.City,
		Locality:         in.Locality,
		Address:          in.Address,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Price:            in.Price,
		PricePerSqft:     in.Price / in.AreaSqft,
		AreaSqft:         in.AreaSqft,
		Bedrooms:         in.Bedrooms,
		Bathrooms:        in.Bathrooms,
		FurnishingStatus: in.FurnishingStatus,
		FloorNumber:      in.FloorNumber,
		TotalFloors:      in.TotalFloors,
		AgeYears:         in.AgeYears,
		Amenities:        in.Amenities,
	}
	if property.Amenities == nil {
		property.Amenities = models.JSONStringArray{}
	}

	if err := s.db.WithContext(ctx).Create(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

type SearchFilters struct {
	City             string   `form:"city"`
	Locality         string   `form:"locality"`
	PropertyType     string   `form:"propertyType"`
	MinPrice         *float64 `form:"minPrice"`
	MaxPrice         *float64 `form:"maxPrice"`
	MinArea          *float64 `form:"minArea"`
	MaxArea          *float64 `form:"maxArea"`
	Bedrooms         *int     `form:"bedrooms"`
	Bathrooms        *int     `form:"bathrooms"`
	FurnishingStatus string   `form:"furnishingStatus"`
	Page             int      `form:"page"`
	Limit            int      `form:"limit"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type SearchResult struct {
	Properties []models.Property `json:"properties"`
	Pagination Pagination        `json:"pagination"`
}

func (s *PropertyService) applyFilters(db *gorm.DB, f SearchFilters) *gorm.DB {
	if f.City != "" {
		db = db.Where("city = ?", f.City)
	}
	if f.Locality != "" {
		db = db.Where("locality LIKE ?", "%"+f.Locality+"%")
	}
	if f.PropertyType != "" {
		db = db.Where("property_type = ?", f.PropertyType)
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	if f.MinArea != nil {
		db = db.Where("area_sqft >= ?", *f.MinArea)
	}
	if f.MaxArea != nil {
		db = db.Where("area_sqft <= ?", *f.MaxArea)
	}
	if f.Bedrooms != nil {
		db = db.Where("bedrooms = ?", *f.Bedrooms)
	}
	if f.Bathrooms != nil {
		db = db.Where("bathrooms = ?", *f.Bathrooms)
	}
	if f.FurnishingStatus != "" {
		db = db.Where("furnishing_status = ?", f.FurnishingStatus)
	}
	return db
}

// Search runs the conjunctive filter with offset pagination and records
// the query in the caller's search history. History failures are logged,
// never surfaced.
func (s *PropertyService) Search(ctx context.Context, userID uint, rawQuery string, f SearchFilters) (*SearchResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultSearchLimit
	}

	var total int64
	if err := s.applyFilters(s.db.WithContext(ctx).Model(&models.Property{}), f).Count(&total).Error; err != nil {
		return nil, err
	}

	var properties []models.Property
	err := s.applyFilters(s.db.WithContext(ctx), f).
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&properties).Error
	if err != nil {
		return nil, err
	}

	if userID != 0 {
		s.recordSearch(ctx, userID, rawQuery, f, len(properties))
	}

	return &SearchResult{
		Properties: properties,
		Pagination: Pagination{
			Total: total,
			Page:  f.Page,
			Limit: f.Limit,
			Pages: int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	}, nil
}

func (s *PropertyService) recordSearch(ctx context.Context, userID uint, rawQuery string, f SearchFilters, results int) {
	filters, err := json.Marshal(f)
	if err != nil {
		filters = []byte("{}")
	}
	entry := models.SearchHistory{
		UserID:       userID,
		SearchQuery:  rawQuery,
		Filters:      string(filters),
		ResultsCount: results,
		SearchedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to record search history")
	}
}

// PropertyDetail is a listing with its most recent analysis attached.
type PropertyDetail struct {
	models.Property
	LatestAnalysis *models.PropertyAnalysis `json:"latest_analysis,omitempty"`
}

func (s *PropertyService) GetByID(ctx context.Context, id uint) (*PropertyDetail, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property", ErrNotFound)
		}
		return nil, err
	}

	detail := PropertyDetail{Property: property}

	var analysis models.PropertyAnalysis
	err := s.db.WithContext(ctx).
		Where("property_id = ?", id).
		Order("analyzed_at DESC").
		First(&analysis).Error
	switch {
	case err == nil:
		detail.LatestAnalysis = &analysis
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return &detail, nil
}

type UpdatePropertyInput struct {
	Title            *string   `json:"title"`
	Description      *string   `json:"description"`
	PropertyType     *string   `json:"property_type"`
	Location         *string   `json:"location"`
	City             *string   `json:"city"`
	Locality         *string   `json:"locality"`
	Address          *string   `json:"address"`
	Latitude         *float64  `json:"latitude"`
	Longitude        *float64  `json:"longitude"`
	Price            *float64  `json:"price"`
	AreaSqft         *float64  `json:"area_sqft"`
	Bedrooms         *int      `json:"bedrooms"`
	Bathrooms        *int      `json:"bathrooms"`
	FurnishingStatus *string   `json:"furnishing_status"`
	FloorNumber      *int      `json:"floor_number"`
	TotalFloors      *int      `json:"total_floors"`
	AgeYears         *int      `json:"age_years"`
	Amenities        *[]string `json:"amenities"`
}

// Update applies a partial patch. PricePerSqft is recomputed only when the
// patch carries both price and area; patching one of the two leaves the
// stored ratio untouched.
func (s *PropertyService) Update(ctx context.Context, id uint, in UpdatePropertyInput) (*PropertyDetail, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property", ErrNotFound)
		}
		return nil, err
	}

	if in.Title != nil {
		property.Title = *in.Title
	}
	if in.Description != nil {
		property.Description = *in.Description
	}
	if in.PropertyType != nil {
		property.PropertyType = *in.PropertyType
	}
	if in.Location != nil {
		property.Location = *in.Location
	}
	if in.City != nil {
		property.City = *in.City
	}
	if in.Locality != nil {
		property.Locality = *in.Locality
	}
	if in.Address != nil {
		property.Address = *in.Address
	}
	if in.Latitude != nil {
		property.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		property.Longitude = in.Longitude
	}
	if in.Price != nil {
		property.Price = *in.Price
	}
	if in.AreaSqft != nil {
		property.AreaSqft = *in.AreaSqft
	}
	if in.Price != nil && in.AreaSqft != nil && *in.AreaSqft > 0 {
		property.PricePerSqft = *in.Price / *in.AreaSqft
	}
	if in.Bedrooms != nil {
		property.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		property.Bathrooms = in.Bathrooms
	}
	if in.FurnishingStatus != nil {
		property.FurnishingStatus = *in.FurnishingStatus
	}
	if in.FloorNumber != nil {
		property.FloorNumber = in.FloorNumber
	}
	if in.TotalFloors != nil {
		property.TotalFloors = in.TotalFloors
	}
	if in.AgeYears != nil {
		property.AgeYears = in.AgeYears
	}
	if in.Amenities != nil {
		property.Amenities = *in.Amenities
	}

	if err := s.db.WithContext(ctx).Save(&property).Error; err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Delete removes a listing with its analyses and saved rows. The
// dependents are deleted explicitly so the invariant holds even on
// connections where foreign-key enforcement is off.
func (s *PropertyService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Property{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: property", ErrNotFound)
		}

		if err := tx.Where("property_id = ?", id).Delete(&models.SavedProperty{}).Error; err != nil {
			return err
		}
		return tx.Where("property_id = ?", id).Delete(&models.PropertyAnalysis{}).Error
	})
}

// ListAnalyses returns all analyses for a property, newest first.
func (s *PropertyService) ListAnalyses(ctx context.Context, propertyID uint) ([]models.PropertyAnalysis, error) {
	var analyses []models.PropertyAnalysis
	err := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("analyzed_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// Nearby returns up to ten same-city listings within radiusKm of the
// source property, by haversine distance. Listings without coordinates
// are excluded from the candidates.
func (s *PropertyService) Nearby(ctx context.Context, propertyID uint, radiusKm float64) ([]models.Property, error) {
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadius
	}

	var source models.Property
	if err := s.db.WithContext(ctx).First(&source, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property", ErrNotFound)
		}
		return nil, err
	}
	if source.Latitude == nil || source.Longitude == nil {
		return nil, fmt.Errorf("%w: property location coordinates not available", ErrValidation)
	}

	var candidates []models.Property
	err := s.db.WithContext(ctx).
		Where("city = ? AND id != ?", source.City, propertyID).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	origin := orb.Point{*source.Longitude, *source.Latitude}
	nearby := make([]models.Property, 0, maxNearbyResults)
	for _, candidate := range candidates {
		point := orb.Point{*candidate.Longitude, *candidate.Latitude}
		if geo.DistanceHaversine(origin, point) <= radiusKm*1000 {
			nearby = append(nearby, candidate)
			if len(nearby) == maxNearbyResults {
				break
			}
		}
	}

	return nearby, nil
}

// PropertyComparison pairs a listing with its most recent analysis.
type PropertyComparison struct {
	models.Property
	Analysis *models.PropertyAnalysis `json:"analysis,omitempty"`
}

// Compare fetches the requested listings and zips each with its latest
// analysis by property id.
func (s *PropertyService) Compare(ctx context.Context, ids []uint) ([]PropertyComparison, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no property ids provided", ErrValidation)
	}

	var properties []models.Property
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&properties).Error; err != nil {
		return nil, err
	}

	var analyses []models.PropertyAnalysis
	err := s.db.WithContext(ctx).
		Where("property_id IN ?", ids).
		Order("analyzed_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}

	// Rows are newest-first, so the first hit per property wins.
	latest := make(map[uint]*models.PropertyAnalysis, len(ids))
	for i := range analyses {
		a := &analyses[i]
		if a.PropertyID == nil {
			continue
		}
		if _, ok := latest[*a.PropertyID]; !ok {
			latest[*a.PropertyID] = a
		}
	}

	comparison := make([]PropertyComparison, 0, len(properties))
	for _, property := range properties {
		comparison = append(comparison, PropertyComparison{
			Property: property,
			Analysis: latest[property.ID],
		})
	}

	return comparison, nil
}

// macroMarketDiscount derives the macro-market average from the listing's
// own price-per-sqft until real comparables are wired in.
const macroMarketDiscount = 0.95

// StoreAnalysis persists a valuation snapshot. The row is linked to a
// stored listing only when the caller names one that actually exists;
// an unknown id degrades to an ad-hoc (unlinked) analysis rather than
// failing the valuation that already succeeded upstream.
func (s *PropertyService) StoreAnalysis(ctx context.Context, userID uint, propertyID *uint, res *AnalysisResult, pricePerSqft float64) (*models.PropertyAnalysis, error) {
	if propertyID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", *propertyID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			s.logger.WithField("property_id", *propertyID).Warn("analysis references unknown property, storing unlinked")
			propertyID = nil
		}
	}

	analysis := models.PropertyAnalysis{
		PropertyID:               propertyID,
		UserID:                   userID,
		FairMarketValueMin:       res.FairMarketValueMin,
		FairMarketValueMax:       res.FairMarketValueMax,
		ConfidenceScore:          res.ConfidenceScore,
		ValuationStatus:          res.ValuationStatus,
		PriceAdvantagePercent:    res.PriceAdvantagePercent,
		AISummary:                res.Summary,
		RiskFactors:              res.RiskFactors,
		GrowthFactors:            res.GrowthFactors,
		RentalYieldPercent:       res.RentalYieldPercent,
		Projected5yGrowthPercent: res.Projected5yGrowthPercent,
		LivabilityScore:          res.LivabilityScore,
		InfrastructureScore:      res.InfrastructureScore,
		ConnectivityScore:        res.ConnectivityScore,
		MicroMarketAvgPrice:      pricePerSqft,
		MacroMarketAvgPrice:      pricePerSqft * macroMarketDiscount,
		AnalyzedAt:               time.Now(),
	}
	if analysis.RiskFactors == nil {
		analysis.RiskFactors = models.FactorList{}
	}
	if analysis.GrowthFactors == nil {
		analysis.GrowthFactors = models.FactorList{}
	}

	if err := s.db.WithContext(ctx).Create(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

type SavedPropertyInput struct {
	Notes string   `json:"notes"`
	Tags  []string `json:"tags"`
}

// Save adds a listing to the user's saved list. The (user, property)
// unique index is the only duplicate guard.
func (s *PropertyService) Save(ctx context.Context, userID, propertyID uint, in SavedPropertyInput) (*models.SavedProperty, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property", ErrNotFound)
		}
		return nil, err
	}

	saved := models.SavedProperty{
		UserID:     userID,
		PropertyID: propertyID,
		Notes:      in.Notes,
		Tags:       in.Tags,
		SavedAt:    time.Now(),
	}
	if saved.Tags == nil {
		saved.Tags = models.JSONStringArray{}
	}

	if err := s.db.WithContext(ctx).Create(&saved).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: property already saved", ErrConflict)
		}
		return nil, err
	}

	return &saved, nil
}

// ListSaved returns the user's saved rows with their listings joined in.
func (s *PropertyService) ListSaved(ctx context.Context, userID uint) ([]models.SavedProperty, error) {
	var saved []models.SavedProperty
	err := s.db.WithContext(ctx).
		Joins("Property").
		Where("saved_properties.user_id = ?", userID).
		Find(&saved).Error
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *PropertyService) UpdateSaved(ctx context.Context, userID, propertyID uint, in SavedPropertyInput) (*models.SavedProperty, error) {
	var saved models.SavedProperty
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		First(&saved).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: saved property", ErrNotFound)
		}
		return nil, err
	}

	saved.Notes = in.Notes
	saved.Tags = in.Tags
	if saved.Tags == nil {
		saved.Tags = models.JSONStringArray{}
	}
	if err := s.db.WithContext(ctx).Save(&saved).Error; err != nil {
		return nil, err
	}

	return &saved, nil
}

func (s *PropertyService) RemoveSaved(ctx context.Context, userID, propertyID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&models.SavedProperty{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: saved property", ErrNotFound)
	}
	return nil
}
