package api

import (
	"github.com/gin-gonic/gin"

	"github.com/proplens/backend/internal/service"
)

type MarketHandler struct {
	market *service.MarketService
}

func NewMarketHandler(market *service.MarketService) *MarketHandler {
	return &MarketHandler{market: market}
}

func (h *MarketHandler) Trends(c *gin.Context) {
	trends, err := h.market.Trends(c.Request.Context(), c.Query("city"), c.Query("locality"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, trends)
}

func (h *MarketHandler) InvestmentPicks(c *gin.Context) {
	picks, err := h.market.InvestmentPicks(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, picks)
}
