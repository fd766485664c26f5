package api

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/proplens/backend/internal/service"
)

type PropertyHandler struct {
	properties *service.PropertyService
	valuation  *service.ValuationService
	usage      *service.UsageService
	logger     *logrus.Logger
}

func NewPropertyHandler(properties *service.PropertyService, valuation *service.ValuationService, usage *service.UsageService, logger *logrus.Logger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		valuation:  valuation,
		usage:      usage,
		logger:     logger,
	}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		BadRequest(c, "invalid property id")
		return 0, false
	}
	return uint(id), true
}

func (h *PropertyHandler) Create(c *gin.Context) {
	var req service.PropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	property, err := h.properties.Create(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}

	Created(c, "Property created successfully", property)
}

func (h *PropertyHandler) Search(c *gin.Context) {
	var filters service.SearchFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.properties.Search(c.Request.Context(), UserID(c), c.Request.URL.RawQuery, filters)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, result)
}

func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.properties.GetByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, detail)
}

func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdatePropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	detail, err := h.properties.Update(c.Request.Context(), id, req)
	if err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Property updated successfully", detail)
}

func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.properties.Delete(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Property deleted successfully", nil)
}

func (h *PropertyHandler) Analyses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	analyses, err := h.properties.ListAnalyses(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, analyses)
}

func (h *PropertyHandler) Nearby(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	radiusKm := 0.0
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			BadRequest(c, "radius must be a positive number of kilometers")
			return
		}
		radiusKm = parsed
	}

	nearby, err := h.properties.Nearby(c.Request.Context(), id, radiusKm)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, nearby)
}

type CompareRequest struct {
	PropertyIDs []uint `json:"propertyIds" binding:"required,min=2"`
}

func (h *PropertyHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	comparison, err := h.properties.Compare(c.Request.Context(), req.PropertyIDs)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, comparison)
}

func (h *PropertyHandler) ListSaved(c *gin.Context) {
	saved, err := h.properties.ListSaved(c.Request.Context(), UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, saved)
}

// bindSavedInput tolerates an absent body: saving with no notes or tags
// is the common case.
func bindSavedInput(c *gin.Context) (service.SavedPropertyInput, bool) {
	var req service.SavedPropertyInput
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, err.Error())
		return req, false
	}
	return req, true
}

func (h *PropertyHandler) SaveProperty(c *gin.Context) {
	propertyID, ok := pathID(c, "propertyId")
	if !ok {
		return
	}
	req, ok := bindSavedInput(c)
	if !ok {
		return
	}

	saved, err := h.properties.Save(c.Request.Context(), UserID(c), propertyID, req)
	if err != nil {
		Fail(c, err)
		return
	}

	Created(c, "Property saved successfully", saved)
}

func (h *PropertyHandler) UpdateSaved(c *gin.Context) {
	propertyID, ok := pathID(c, "propertyId")
	if !ok {
		return
	}
	req, ok := bindSavedInput(c)
	if !ok {
		return
	}

	saved, err := h.properties.UpdateSaved(c.Request.Context(), UserID(c), propertyID, req)
	if err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Saved property updated successfully", saved)
}

func (h *PropertyHandler) RemoveSaved(c *gin.Context) {
	propertyID, ok := pathID(c, "propertyId")
	if !ok {
		return
	}

	if err := h.properties.RemoveSaved(c.Request.Context(), UserID(c), propertyID); err != nil {
		Fail(c, err)
		return
	}

	OKMessage(c, "Property removed from saved list", nil)
}

type AnalyzeRequest struct {
	service.PropertyInput
	PropertyID *uint `json:"property_id"`
}

// AnalyzeAI runs the generative valuation over the submitted listing
// details and stores the resulting snapshot.
func (h *PropertyHandler) AnalyzeAI(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, tokens, err := h.valuation.AnalyzeProperty(c.Request.Context(), req.PropertyInput)
	if err != nil {
		Fail(c, err)
		return
	}

	pricePerSqft := req.Price / req.AreaSqft
	analysis, err := h.properties.StoreAnalysis(c.Request.Context(), UserID(c), req.PropertyID, result, pricePerSqft)
	if err != nil {
		Fail(c, err)
		return
	}

	h.recordUsage(c, "analyze-ai", tokens)

	OKMessage(c, "Analysis completed successfully", analysis)
}

func (h *PropertyHandler) QuickEstimate(c *gin.Context) {
	city := c.Query("city")
	locality := c.Query("locality")
	propertyType := c.Query("propertyType")
	areaRaw := c.Query("area")
	if city == "" || locality == "" || propertyType == "" || areaRaw == "" {
		BadRequest(c, "city, locality, area and propertyType are required")
		return
	}
	areaSqft, err := strconv.ParseFloat(areaRaw, 64)
	if err != nil || areaSqft <= 0 {
		BadRequest(c, "area must be a positive number of square feet")
		return
	}

	estimate, tokens, err := h.valuation.GetQuickPriceEstimate(c.Request.Context(), city, locality, areaSqft, propertyType)
	if err != nil {
		Fail(c, err)
		return
	}

	h.recordUsage(c, "quick-estimate", tokens)

	OK(c, estimate)
}

// recordUsage meters tokens after a successful AI call. Metering never
// fails the request.
func (h *PropertyHandler) recordUsage(c *gin.Context, endpoint string, tokens int) {
	if err := h.usage.Record(c.Request.Context(), UserID(c), endpoint, tokens); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": endpoint,
			"user_id":  UserID(c),
		}).Warn("failed to record api usage")
	}
}
