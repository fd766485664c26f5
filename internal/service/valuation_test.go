package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proplens/backend/internal/service"
)

const validAnalysisJSON = `{
  "fairMarketValueMin": 23000000,
  "fairMarketValueMax": 27000000,
  "confidenceScore": 7.5,
  "valuationStatus": "fair",
  "summary": "Priced in line with the micro-market.",
  "riskFactors": [{"type": "liquidity", "description": "Slow resale market", "severity": "medium"}],
  "growthFactors": [{"type": "infrastructure", "description": "Metro extension underway", "impact": "high"}],
  "projected5yGrowthPercent": 32.5,
  "rentalYieldPercent": 3.1,
  "priceAdvantagePercent": 1.2,
  "livabilityScore": 8,
  "infrastructureScore": 7,
  "connectivityScore": 9
}`

// geminiStub serves canned model text in the upstream wire shape.
func geminiStub(t *testing.T, text string, tokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req, "contents")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				}},
			},
			"usageMetadata": map[string]int{"totalTokenCount": tokens},
		})
	}))
}

func newValuationService(baseURL string) *service.ValuationService {
	return service.NewValuationService("test-key", baseURL, "gemini-test", 5*time.Second)
}

func TestAnalyzeProperty(t *testing.T) {
	server := geminiStub(t, validAnalysisJSON, 512)
	defer server.Close()

	svc := newValuationService(server.URL)
	result, tokens, err := svc.AnalyzeProperty(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 512, tokens)
	assert.Equal(t, 23000000.0, result.FairMarketValueMin)
	assert.Equal(t, "fair", result.ValuationStatus)
	require.Len(t, result.RiskFactors, 1)
	assert.Equal(t, "medium", result.RiskFactors[0].Severity)
}

func TestAnalyzePropertyStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validAnalysisJSON + "\n```"
	server := geminiStub(t, fenced, 512)
	defer server.Close()

	svc := newValuationService(server.URL)
	result, _, err := svc.AnalyzeProperty(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 27000000.0, result.FairMarketValueMax)
}

func TestAnalyzePropertyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "the property looks fairly priced to me"},
		{"missing bounds", `{"valuationStatus": "fair", "confidenceScore": 7}`},
		{
			"inverted range",
			`{"fairMarketValueMin": 30000000, "fairMarketValueMax": 20000000, "valuationStatus": "fair", "confidenceScore": 7}`,
		},
		{
			"unknown status",
			`{"fairMarketValueMin": 20000000, "fairMarketValueMax": 30000000, "valuationStatus": "bargain", "confidenceScore": 7}`,
		},
		{
			"score out of range",
			`{"fairMarketValueMin": 20000000, "fairMarketValueMax": 30000000, "valuationStatus": "fair", "confidenceScore": 11}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := geminiStub(t, tt.text, 100)
			defer server.Close()

			svc := newValuationService(server.URL)
			_, _, err := svc.AnalyzeProperty(context.Background(), sampleInput())
			assert.ErrorIs(t, err, service.ErrUpstream)
		})
	}
}

func TestAnalyzePropertyUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http error status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			"error payload",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error": {"message": "API key not valid"}}`)
			},
		},
		{
			"empty candidates",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates": []}`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			svc := newValuationService(server.URL)
			_, _, err := svc.AnalyzeProperty(context.Background(), sampleInput())
			assert.ErrorIs(t, err, service.ErrUpstream)
		})
	}
}

func TestQuickPriceEstimate(t *testing.T) {
	server := geminiStub(t, `{"minPrice": 14000000, "maxPrice": 17000000, "confidence": 6.5}`, 90)
	defer server.Close()

	svc := newValuationService(server.URL)
	estimate, tokens, err := svc.GetQuickPriceEstimate(context.Background(), "Bengaluru", "Koramangala", 1150, "apartment")
	require.NoError(t, err)
	assert.Equal(t, 90, tokens)
	assert.Equal(t, 14000000.0, estimate.MinPrice)
	assert.Equal(t, 17000000.0, estimate.MaxPrice)
}

func TestQuickPriceEstimateRejectsEmptyRange(t *testing.T) {
	server := geminiStub(t, `{"minPrice": 0, "maxPrice": 0, "confidence": 2}`, 10)
	defer server.Close()

	svc := newValuationService(server.URL)
	_, _, err := svc.GetQuickPriceEstimate(context.Background(), "Bengaluru", "Koramangala", 1150, "apartment")
	assert.ErrorIs(t, err, service.ErrUpstream)
}
