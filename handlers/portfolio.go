package handlers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
	"stocks-simulator/models"
)

type PortfolioHandler struct {
	ledger   *ledger.Ledger
	currency string
	logger   *slog.Logger
}

func NewPortfolioHandler(l *ledger.Ledger, currency string, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{ledger: l, currency: currency, logger: logger}
}

type TradeInput struct {
	Symbol string      `json:"symbol" form:"symbol" binding:"required,symbol"`
	Shares sharesField `json:"shares" form:"shares"`
}

func (h *PortfolioHandler) parseTrade(c *gin.Context) (ledger.Order, bool) {
	var input TradeInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return ledger.Order{}, false
	}
	order, err := ledger.ParseOrder(input.Symbol, string(input.Shares))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return ledger.Order{}, false
	}
	return order, true
}

func (h *PortfolioHandler) Buy(c *gin.Context) {
	order, ok := h.parseTrade(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	receipt, err := h.ledger.Buy(c.Request.Context(), userID, order)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	h.logger.Info("Bought shares", "user_id", userID, "symbol", order.Symbol,
		"shares", order.Shares, "price", receipt.Transaction.Price.StringFixed(2))
	c.JSON(http.StatusCreated, h.receiptView("Bought!", receipt))
}

func (h *PortfolioHandler) Sell(c *gin.Context) {
	order, ok := h.parseTrade(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	receipt, err := h.ledger.Sell(c.Request.Context(), userID, order)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	h.logger.Info("Sold shares", "user_id", userID, "symbol", order.Symbol,
		"shares", order.Shares, "price", receipt.Transaction.Price.StringFixed(2))
	c.JSON(http.StatusOK, h.receiptView("Sold!", receipt))
}

func (h *PortfolioHandler) receiptView(message string, r *ledger.Receipt) gin.H {
	return gin.H{
		"message":     message,
		"transaction": r.Transaction,
		"amount_usd":  formatMoney(r.Transaction.Amount(), h.currency),
		"cash":        r.Cash,
		"cash_usd":    formatMoney(r.Cash, h.currency),
		"shares":      r.Shares,
	}
}

type positionView struct {
	ledger.Position
	PriceUSD string `json:"price_usd"`
	ValueUSD string `json:"value_usd"`
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	p, err := h.ledger.ComputeNetWorth(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	holdings := make([]positionView, 0, len(p.Holdings))
	for _, pos := range p.Holdings {
		holdings = append(holdings, positionView{
			Position: pos,
			PriceUSD: formatMoney(pos.Price, h.currency),
			ValueUSD: formatMoney(pos.Value, h.currency),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"holdings":           holdings,
		"cash":               p.Cash,
		"cash_usd":           formatMoney(p.Cash, h.currency),
		"holdings_value":     p.HoldingsValue,
		"holdings_value_usd": formatMoney(p.HoldingsValue, h.currency),
		"net_worth":          p.NetWorth,
		"net_worth_usd":      formatMoney(p.NetWorth, h.currency),
	})
}

func (h *PortfolioHandler) GetChart(c *gin.Context) {
	points, err := h.ledger.Chart(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *PortfolioHandler) GetHistory(c *gin.Context) {
	history, err := h.ledger.ListHistory(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": history})
}

var historyHeader = []string{"Timestamp", "Kind", "Symbol", "Shares", "Price", "Amount"}

func historyRow(t models.Transaction) []string {
	return []string{
		t.CreatedAt.UTC().Format(time.RFC3339),
		string(t.Kind),
		t.Symbol,
		strconv.FormatInt(t.Shares, 10),
		t.Price.StringFixed(2),
		t.Amount().StringFixed(2),
	}
}

// ExportHistory downloads the transaction history as CSV (default) or XLSX.
func (h *PortfolioHandler) ExportHistory(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	history, err := h.ledger.ListHistory(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("history_%s.%s", time.Now().Format("20060102"), format)
	if format == "xlsx" {
		h.writeXLSX(c, filename, history)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w := csv.NewWriter(c.Writer)
	records := make([][]string, 0, len(history)+1)
	records = append(records, historyHeader)
	for _, t := range history {
		records = append(records, historyRow(t))
	}
	if err := w.WriteAll(records); err != nil {
		h.logger.Error("Writing CSV export failed", "error", err)
	}
}

func (h *PortfolioHandler) writeXLSX(c *gin.Context, filename string, history []models.Transaction) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "History"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		h.logger.Error("Creating worksheet failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}

	header := make([]interface{}, len(historyHeader))
	for i, name := range historyHeader {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		h.logger.Error("Writing worksheet failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}

	for i, t := range history {
		price, _ := t.Price.Float64()
		amount, _ := t.Amount().Float64()
		row := []interface{}{
			t.CreatedAt.UTC().Format(time.RFC3339),
			string(t.Kind),
			t.Symbol,
			t.Shares,
			price,
			amount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			h.logger.Error("Writing worksheet failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
			return
		}
	}
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "D", 10)
	f.SetColWidth(sheet, "E", "F", 14)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Writing XLSX export failed", "error", err)
	}
}
