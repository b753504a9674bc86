package handler

import (
	"hbinterface/backend/internal/analytics"
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RiskRequest is the body of POST /api/analytics/risk
type RiskRequest struct {
	Trades []model.Trade           `json:"trades" binding:"required"`
	Market []analytics.MarketPoint `json:"market"`
}

func (r RiskRequest) inRange() bool {
	for _, t := range r.Trades {
		for _, d := range []decimal.Decimal{t.Price, t.Amount, t.Cost, t.Fee.Cost} {
			if !model.DecimalInRange(d) {
				return false
			}
		}
	}
	for _, p := range r.Market {
		if !model.DecimalInRange(p.Price) {
			return false
		}
	}
	return true
}

// RiskResponse pairs PnL with the risk figures
type RiskResponse struct {
	PnL  analytics.PnL         `json:"pnl"`
	Risk analytics.RiskMetrics `json:"risk"`
}

// AnalyticsHandler serves portfolio analytics
type AnalyticsHandler struct {
	botService *service.BotService
}

// NewAnalyticsHandler creates an analytics handler
func NewAnalyticsHandler(botService *service.BotService) *AnalyticsHandler {
	return &AnalyticsHandler{botService: botService}
}

// Risk handles POST /api/analytics/risk
func (h *AnalyticsHandler) Risk(c *gin.Context) {
	var req RiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}
	if !req.inRange() {
		util.SendError(c, util.ErrBadRequest("Please enter a valid number"))
		return
	}

	util.SendSuccess(c, RiskResponse{
		PnL:  analytics.CalculatePnL(req.Trades),
		Risk: analytics.CalculateRiskMetrics(req.Trades, req.Market),
	})
}

// BotSummary handles GET /api/analytics/bots
func (h *AnalyticsHandler) BotSummary(c *gin.Context) {
	summary, err := h.botService.Summary(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, summary)
}
