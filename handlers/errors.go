package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"stocks-simulator/ledger"
)

// respondLedgerError maps a ledger error kind to its HTTP status.
func respondLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Can't afford"})
	case errors.Is(err, ledger.ErrInsufficientShares):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Too many shares"})
	case errors.Is(err, ledger.ErrNoSuchHolding):
		c.JSON(http.StatusNotFound, gin.H{"error": "You don't own that stock"})
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		logger.Warn("Quote unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Quote unavailable"})
	case errors.Is(err, ledger.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
	default:
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
	c.Error(err)
}

// respondBindError turns a binding failure into a 400 with one readable
// message per field.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed request body"})
		return
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(msgs, "; ")})
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "symbol":
		return field + " is malformed"
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, strings.ToLower(fe.Param()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "alphanum":
		return field + " must contain only letters and digits"
	default:
		return field + " is invalid"
	}
}
