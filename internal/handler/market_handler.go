package handler

import (
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// MarketHandler serves the stubbed market data routes
type MarketHandler struct {
	marketService *service.MarketService
}

// NewMarketHandler creates a market handler
func NewMarketHandler(marketService *service.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// GetSymbols handles GET /api/market/symbols
func (h *MarketHandler) GetSymbols(c *gin.Context) {
	util.SendSuccess(c, h.marketService.Symbols())
}

// GetTicker handles GET /api/market/ticker/:symbol
func (h *MarketHandler) GetTicker(c *gin.Context) {
	ticker, err := h.marketService.Ticker(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, ticker)
}

// GetOrderBook handles GET /api/market/orderbook/:symbol
func (h *MarketHandler) GetOrderBook(c *gin.Context) {
	book, err := h.marketService.OrderBook(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, book)
}

// GetTrades handles GET /api/market/trades/:symbol
func (h *MarketHandler) GetTrades(c *gin.Context) {
	trades, err := h.marketService.Trades(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		util.SendError(c, err)
		return
	}
	util.SendSuccess(c, trades)
}
