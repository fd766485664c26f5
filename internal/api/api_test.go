package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/proplens/backend/config"
	"github.com/proplens/backend/internal/models"
	"github.com/proplens/backend/internal/router"
	"github.com/proplens/backend/internal/testhelpers"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	} `json:"error"`
}

// setupServer wires the real route table against an in-memory database.
// The Redis client points nowhere, so the rate limiter fails open, and
// geminiURL stands in for the upstream AI endpoint.
func setupServer(t *testing.T, geminiURL string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-jwt-secret"
	cfg.Gemini.APIKey = "test-key"
	cfg.Gemini.BaseURL = geminiURL
	cfg.Gemini.Model = "gemini-test"
	cfg.Gemini.TimeoutSeconds = 5
	cfg.RateLimit.AILimit = 30
	cfg.RateLimit.AIWindowMinutes = 60

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	engine := router.New(router.Deps{
		DB:     db,
		Redis:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		Config: cfg,
		Logger: logger,
	})
	return engine, db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func signup(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w, env := doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "agent@example.com",
		"username": "agent007",
		"password": "supersecret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func propertyPayload() gin.H {
	return gin.H{
		"title":         "3BHK in Indiranagar",
		"property_type": "apartment",
		"city":          "Bengaluru",
		"locality":      "Indiranagar",
		"price":         50000000,
		"area_sqft":     1200,
		"latitude":      12.9716,
		"longitude":     77.6412,
	}
}

func TestSignupEndpoint(t *testing.T) {
	engine, _ := setupServer(t, "")

	w, env := doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "agent@example.com",
		"username": "agent007",
		"password": "supersecret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	// The password hash must never leave the server.
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "hash")

	var data struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.TierFree, data.User.SubscriptionTier)
	assert.NotEmpty(t, data.Token)

	// Same email again conflicts.
	w, env = doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "agent@example.com",
		"username": "other",
		"password": "supersecret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestSignupValidation(t *testing.T) {
	engine, _ := setupServer(t, "")

	w, env := doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "not-an-email",
		"username": "agent007",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestLoginEndpoint(t *testing.T) {
	engine, _ := setupServer(t, "")
	signup(t, engine)

	w, env := doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "agent007",
		"password": "supersecret1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "agent007",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine, _ := setupServer(t, "")

	// Every property route is gated, reads included.
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/properties"},
		{http.MethodGet, "/api/properties?city=Bengaluru"},
		{http.MethodGet, "/api/properties/1"},
		{http.MethodGet, "/api/properties/1/analysis"},
		{http.MethodGet, "/api/properties/nearby/1"},
		{http.MethodGet, "/api/properties/saved/all"},
	}
	for _, route := range paths {
		w, env := doJSON(t, engine, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		require.NotNil(t, env.Error, route.path)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code, route.path)
	}

	w, _ := doJSON(t, engine, http.MethodGet, "/api/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndFetchProperty(t *testing.T) {
	engine, _ := setupServer(t, "")
	token := signup(t, engine)

	w, env := doJSON(t, engine, http.MethodPost, "/api/properties", token, propertyPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Property
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.InDelta(t, 41666.67, created.PricePerSqft, 0.01)

	w, env = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/api/properties/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = doJSON(t, engine, http.MethodGet, "/api/properties/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSearchEndpoint(t *testing.T) {
	engine, _ := setupServer(t, "")
	token := signup(t, engine)

	for i := 0; i < 3; i++ {
		payload := propertyPayload()
		payload["title"] = fmt.Sprintf("Listing %d", i)
		w, _ := doJSON(t, engine, http.MethodPost, "/api/properties", token, payload)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := doJSON(t, engine, http.MethodGet, "/api/properties?city=Bengaluru&limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Properties []models.Property `json:"properties"`
		Pagination struct {
			Total int64 `json:"total"`
			Pages int   `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Len(t, result.Properties, 2)
	assert.EqualValues(t, 3, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.Pages)
}

func TestSavedPropertyEndpoints(t *testing.T) {
	engine, _ := setupServer(t, "")
	token := signup(t, engine)

	w, env := doJSON(t, engine, http.MethodPost, "/api/properties", token, propertyPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Property
	require.NoError(t, json.Unmarshal(env.Data, &created))

	path := fmt.Sprintf("/api/properties/saved/%d", created.ID)
	w, _ = doJSON(t, engine, http.MethodPost, path, token, gin.H{"notes": "shortlisted"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = doJSON(t, engine, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	w, env = doJSON(t, engine, http.MethodGet, "/api/properties/saved/all", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var saved []models.SavedProperty
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "shortlisted", saved[0].Notes)

	w, _ = doJSON(t, engine, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, engine, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

const analysisStubJSON = `{
  "fairMarketValueMin": 45000000,
  "fairMarketValueMax": 55000000,
  "confidenceScore": 7,
  "valuationStatus": "fair",
  "summary": "Priced in line with the locality.",
  "riskFactors": [],
  "growthFactors": [],
  "projected5yGrowthPercent": 28,
  "rentalYieldPercent": 3.2,
  "priceAdvantagePercent": 0.5,
  "livabilityScore": 8,
  "infrastructureScore": 7,
  "connectivityScore": 9
}`

func stubGemini(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gin.H{
			"candidates": []gin.H{
				{"content": gin.H{"parts": []gin.H{{"text": text}}}},
			},
			"usageMetadata": gin.H{"totalTokenCount": 321},
		})
	}))
}

func TestAnalyzeAIEndpoint(t *testing.T) {
	upstream := stubGemini(t, analysisStubJSON)
	defer upstream.Close()

	engine, db := setupServer(t, upstream.URL)
	token := signup(t, engine)

	w, env := doJSON(t, engine, http.MethodPost, "/api/properties", token, propertyPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Property
	require.NoError(t, json.Unmarshal(env.Data, &created))

	payload := propertyPayload()
	payload["property_id"] = created.ID
	w, env = doJSON(t, engine, http.MethodPost, "/api/properties/analyze-ai", token, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var analysis models.PropertyAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &analysis))
	assert.Equal(t, models.ValuationFair, analysis.ValuationStatus)
	require.NotNil(t, analysis.PropertyID)
	assert.Equal(t, created.ID, *analysis.PropertyID)
	assert.InDelta(t, created.PricePerSqft, analysis.MicroMarketAvgPrice, 0.01)
	assert.InDelta(t, created.PricePerSqft*0.95, analysis.MacroMarketAvgPrice, 0.01)

	// The snapshot is persisted and the call metered.
	var stored []models.PropertyAnalysis
	require.NoError(t, db.Find(&stored).Error)
	assert.Len(t, stored, 1)

	var usage []models.ApiUsage
	require.NoError(t, db.Find(&usage).Error)
	require.Len(t, usage, 1)
	assert.Equal(t, "analyze-ai", usage[0].Endpoint)
	assert.Equal(t, 321, usage[0].GeminiTokensUsed)
}

func TestAnalyzeAIUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	engine, _ := setupServer(t, upstream.URL)
	token := signup(t, engine)

	w, env := doJSON(t, engine, http.MethodPost, "/api/properties/analyze-ai", token, propertyPayload())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UPSTREAM_ERROR", env.Error.Code)
}

func TestQuickEstimateEndpoint(t *testing.T) {
	upstream := stubGemini(t, `{"minPrice": 14000000, "maxPrice": 17000000, "confidence": 6}`)
	defer upstream.Close()

	engine, _ := setupServer(t, upstream.URL)
	token := signup(t, engine)

	w, env := doJSON(t, engine, http.MethodGet,
		"/api/properties/quick-estimate?city=Bengaluru&locality=Koramangala&area=1150&propertyType=apartment", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var estimate struct {
		MinPrice float64 `json:"minPrice"`
		MaxPrice float64 `json:"maxPrice"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &estimate))
	assert.Equal(t, 14000000.0, estimate.MinPrice)

	// Missing params never reach the upstream.
	w, env = doJSON(t, engine, http.MethodGet, "/api/properties/quick-estimate?city=Bengaluru", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestMarketEndpoints(t *testing.T) {
	engine, db := setupServer(t, "")

	require.NoError(t, db.Create(&models.MarketTrend{
		City: "Bengaluru", Locality: "Indiranagar", Year: 2026, Quarter: 2, AvgPricePerSqft: 15400,
	}).Error)

	w, env := doJSON(t, engine, http.MethodGet, "/api/market/trends?city=Bengaluru", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var trends []models.MarketTrend
	require.NoError(t, json.Unmarshal(env.Data, &trends))
	assert.Len(t, trends, 1)

	w, env = doJSON(t, engine, http.MethodGet, "/api/market/trends", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/market/investment-picks", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := setupServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
