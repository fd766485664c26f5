package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proplens/backend/internal/models"
)

// ValuationService proxies property valuations to a Gemini-style
// generative-AI endpoint. Calls are single-attempt: any HTTP, shape, or
// parse failure surfaces as an upstream error with no retry and no
// caching.
type ValuationService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewValuationService(apiKey, baseURL, model string, timeout time.Duration) *ValuationService {
	return &ValuationService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// AnalysisResult is the JSON shape the model is instructed to produce.
type AnalysisResult struct {
	FairMarketValueMin       float64         `json:"fairMarketValueMin"`
	FairMarketValueMax       float64         `json:"fairMarketValueMax"`
	ConfidenceScore          float64         `json:"confidenceScore"`
	ValuationStatus          string          `json:"valuationStatus"`
	Summary                  string          `json:"summary"`
	RiskFactors              []models.Factor `json:"riskFactors"`
	GrowthFactors            []models.Factor `json:"growthFactors"`
	Projected5yGrowthPercent float64         `json:"projected5yGrowthPercent"`
	RentalYieldPercent       float64         `json:"rentalYieldPercent"`
	PriceAdvantagePercent    float64         `json:"priceAdvantagePercent"`
	LivabilityScore          float64         `json:"livabilityScore"`
	InfrastructureScore      float64         `json:"infrastructureScore"`
	ConnectivityScore        float64         `json:"connectivityScore"`
}

type QuickEstimate struct {
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	Confidence float64 `json:"confidence"`
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func intOrNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func strOrNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func buildAnalysisPrompt(p PropertyInput) string {
	priceInCr := p.Price / 10000000
	pricePerSqft := p.Price / p.AreaSqft

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert Indian real estate analyst specializing in Mumbai, Delhi, and Bangalore markets.\n\n")
	fmt.Fprintf(&b, "Analyze the following property and provide a comprehensive valuation:\n\n")
	fmt.Fprintf(&b, "**Property Details:**\n")
	fmt.Fprintf(&b, "- Location: %s, %s\n", p.Locality, p.City)
	fmt.Fprintf(&b, "- Type: %s\n", p.PropertyType)
	fmt.Fprintf(&b, "- Price: ₹%.2f Crore (₹%.0f)\n", priceInCr, p.Price)
	fmt.Fprintf(&b, "- Area: %.0f sq ft\n", p.AreaSqft)
	fmt.Fprintf(&b, "- Price per sq ft: ₹%.2f\n", pricePerSqft)
	fmt.Fprintf(&b, "- Bedrooms: %s\n", intOrNA(p.Bedrooms))
	fmt.Fprintf(&b, "- Bathrooms: %s\n", intOrNA(p.Bathrooms))
	fmt.Fprintf(&b, "- Furnishing: %s\n", strOrNA(p.FurnishingStatus))
	fmt.Fprintf(&b, "- Floor: %s/%s\n", intOrNA(p.FloorNumber), intOrNA(p.TotalFloors))
	if p.AgeYears != nil {
		fmt.Fprintf(&b, "- Age: %d years\n", *p.AgeYears)
	} else {
		fmt.Fprintf(&b, "- Age: New\n")
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "\n**Market Context:**\n")
	fmt.Fprintf(&b, "Consider typical %s market rates for %s. Typical rates in this area range from ₹35,000-65,000 per sqft depending on amenities and exact location.\n\n", p.City, p.Locality)
	b.WriteString(`**Analysis Required:**
1. Fair market value range (minimum and maximum in rupees)
2. Valuation status (undervalued if 10%+ below market, overvalued if 10%+ above, otherwise fair)
3. Brief summary (2-3 sentences)
4. Top 3 risk factors with severity (low/medium/high)
5. Top 3 growth factors with impact (low/medium/high)
6. 5-year projected growth percentage
7. Expected rental yield percentage
8. Price advantage percentage (negative if above market, positive if below)
9. Livability score (0-10) considering amenities, location quality
10. Infrastructure score (0-10) for nearby facilities
11. Connectivity score (0-10) for transport access
12. Overall confidence score (0-10) in this analysis

**Output Format:**
Respond ONLY with valid JSON in this exact format (no markdown, no code blocks):
{
  "fairMarketValueMin": <number>,
  "fairMarketValueMax": <number>,
  "confidenceScore": <number 0-10>,
  "valuationStatus": "<undervalued|fair|overvalued>",
  "summary": "<string>",
  "riskFactors": [
    {"type": "<string>", "description": "<string>", "severity": "<low|medium|high>"}
  ],
  "growthFactors": [
    {"type": "<string>", "description": "<string>", "impact": "<low|medium|high>"}
  ],
  "projected5yGrowthPercent": <number>,
  "rentalYieldPercent": <number>,
  "priceAdvantagePercent": <number>,
  "livabilityScore": <number 0-10>,
  "infrastructureScore": <number 0-10>,
  "connectivityScore": <number 0-10>
}`)

	return b.String()
}

// AnalyzeProperty runs the full valuation prompt. Returns the parsed
// result and the upstream token count when reported.
func (s *ValuationService) AnalyzeProperty(ctx context.Context, in PropertyInput) (*AnalysisResult, int, error) {
	text, tokens, err := s.generate(ctx, buildAnalysisPrompt(in), 0.7, 2048)
	if err != nil {
		return nil, 0, err
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &result); err != nil {
		return nil, 0, fmt.Errorf("%w: response is not valid JSON: %v", ErrUpstream, err)
	}
	if err := result.validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &result, tokens, nil
}

// GetQuickPriceEstimate asks for a rough price band with a small output
// budget.
func (s *ValuationService) GetQuickPriceEstimate(ctx context.Context, city, locality string, areaSqft float64, propertyType string) (*QuickEstimate, int, error) {
	prompt := fmt.Sprintf(`As a real estate expert in %s, India, provide a quick price estimate for:
- Location: %s, %s
- Area: %.0f sq ft
- Type: %s

Respond ONLY with JSON (no markdown):
{
  "minPrice": <number in rupees>,
  "maxPrice": <number in rupees>,
  "confidence": <number 0-10>
}`, city, locality, city, areaSqft, propertyType)

	text, tokens, err := s.generate(ctx, prompt, 0.5, 256)
	if err != nil {
		return nil, 0, err
	}

	var estimate QuickEstimate
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &estimate); err != nil {
		return nil, 0, fmt.Errorf("%w: response is not valid JSON: %v", ErrUpstream, err)
	}
	if estimate.MinPrice <= 0 || estimate.MaxPrice < estimate.MinPrice {
		return nil, 0, fmt.Errorf("%w: estimate is missing a usable price range", ErrUpstream)
	}

	return &estimate, tokens, nil
}

func (s *ValuationService) generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, int, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, body)
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", 0, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	if result.Error != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrUpstream, result.Error.Message)
	}
	if len(result.Candidates) == 0 {
		return "", 0, fmt.Errorf("%w: empty candidates", ErrUpstream)
	}
	parts := result.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", 0, fmt.Errorf("%w: no text content in response", ErrUpstream)
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = result.UsageMetadata.TotalTokenCount
	}

	return parts[0].Text, tokens, nil
}

// stripCodeFences removes markdown fence wrapping some models add despite
// being told not to.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// validate rejects partially-malformed analyses instead of letting them
// propagate into stored rows.
func (r *AnalysisResult) validate() error {
	if r.FairMarketValueMin <= 0 || r.FairMarketValueMax <= 0 {
		return fmt.Errorf("missing fair market value bounds")
	}
	if r.FairMarketValueMax < r.FairMarketValueMin {
		return fmt.Errorf("fair market value range is inverted")
	}
	switch r.ValuationStatus {
	case models.ValuationUndervalued, models.ValuationFair, models.ValuationOvervalued:
	default:
		return fmt.Errorf("unknown valuation status %q", r.ValuationStatus)
	}
	for _, score := range []float64{r.ConfidenceScore, r.LivabilityScore, r.InfrastructureScore, r.ConnectivityScore} {
		if score < 0 || score > 10 {
			return fmt.Errorf("score %v outside 0-10", score)
		}
	}
	return nil
}
