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

func TestUsageRecord(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	usage := service.NewUsageService(db)

	require.NoError(t, usage.Record(context.Background(), 1, "analyze-ai", 500))
	require.NoError(t, usage.Record(context.Background(), 1, "analyze-ai", 300))
	require.NoError(t, usage.Record(context.Background(), 1, "quick-estimate", 90))
	require.NoError(t, usage.Record(context.Background(), 2, "analyze-ai", 700))

	var rows []models.ApiUsage
	require.NoError(t, db.Where("user_id = ?", 1).Order("endpoint").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "analyze-ai", rows[0].Endpoint)
	assert.Equal(t, 2, rows[0].RequestCount)
	assert.Equal(t, 800, rows[0].GeminiTokensUsed)
	assert.Equal(t, "quick-estimate", rows[1].Endpoint)
	assert.Equal(t, 1, rows[1].RequestCount)

	total, err := usage.TokensUsedToday(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 890, total)

	total, err = usage.TokensUsedToday(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, total)
}
