package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/proplens/backend/internal/models"
)

// UsageService meters AI-endpoint calls into api_usage, one row per
// (user, endpoint, day).
type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// Record increments today's counters for the user and endpoint, creating
// the row on first use. A create that loses a race to another request
// falls back to the increment.
func (s *UsageService) Record(ctx context.Context, userID uint, endpoint string, tokens int) error {
	date := time.Now().Format("2006-01-02")

	increment := func() (int64, error) {
		result := s.db.WithContext(ctx).
			Model(&models.ApiUsage{}).
			Where("user_id = ? AND endpoint = ? AND date = ?", userID, endpoint, date).
			Updates(map[string]interface{}{
				"request_count":      gorm.Expr("request_count + 1"),
				"gemini_tokens_used": gorm.Expr("gemini_tokens_used + ?", tokens),
			})
		return result.RowsAffected, result.Error
	}

	rows, err := increment()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	usage := models.ApiUsage{
		UserID:           userID,
		Endpoint:         endpoint,
		RequestCount:     1,
		GeminiTokensUsed: tokens,
		Date:             date,
	}
	if err := s.db.WithContext(ctx).Create(&usage).Error; err != nil {
		if isUniqueViolation(err) {
			_, err = increment()
		}
		return err
	}

	return nil
}

// TokensUsedToday returns the user's Gemini token total for the day.
func (s *UsageService) TokensUsedToday(ctx context.Context, userID uint) (int, error) {
	date := time.Now().Format("2006-01-02")

	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ApiUsage{}).
		Where("user_id = ? AND date = ?", userID, date).
		Select("COALESCE(SUM(gemini_tokens_used), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return int(total), nil
}
