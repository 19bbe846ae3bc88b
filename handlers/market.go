package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stocks-simulator/ledger"
	"stocks-simulator/models"
	"stocks-simulator/quote"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 500
)

type PriceArchive interface {
	PriceHistory(ctx context.Context, symbol string, limit int) ([]models.StockPrice, error)
}

type MarketHandler struct {
	quotes   ledger.Quoter
	prices   PriceArchive
	currency string
	logger   *slog.Logger
}

func NewMarketHandler(quotes ledger.Quoter, prices PriceArchive, currency string, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{quotes: quotes, prices: prices, currency: currency, logger: logger}
}

func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := ledger.NormalizeSymbol(c.Param("symbol"))
	if !ledger.ValidSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is malformed"})
		return
	}

	q, err := h.quotes.Lookup(c.Request.Context(), symbol)
	if errors.Is(err, quote.ErrUnavailable) {
		h.logger.Warn("Quote unavailable", "symbol", symbol, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Quote unavailable"})
		return
	}
	if err != nil {
		h.logger.Error("Quote lookup failed", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    q.Symbol,
		"price":     q.Price,
		"usd":       formatMoney(q.Price, h.currency),
		"timestamp": q.At,
	})
}

func (h *MarketHandler) GetPriceHistory(c *gin.Context) {
	symbol := ledger.NormalizeSymbol(c.Param("symbol"))
	if !ledger.ValidSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is malformed"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	prices, err := h.prices.PriceHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.Error("Reading price history failed", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch price history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "prices": prices})
}
