package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stocks-simulator/cache"
	"stocks-simulator/database"
	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
	"stocks-simulator/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, userID uint) (*models.User, error)
}

type AuthConfig struct {
	Secret      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	InitialCash decimal.Decimal
	Currency    string
}

type AuthHandler struct {
	users  UserStore
	tokens cache.Store
	cfg    AuthConfig
	logger *slog.Logger
}

func NewAuthHandler(users UserStore, tokens cache.Store, cfg AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, cfg: cfg, logger: logger}
}

type RegisterInput struct {
	Username     string `json:"username" form:"username" binding:"required,max=64"`
	Password     string `json:"password" form:"password" binding:"required"`
	Confirmation string `json:"confirmation" form:"confirmation" binding:"required"`
}

type LoginInput struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" binding:"required"`
}

func refreshKey(token string) string {
	return "refresh:" + token
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	if input.Password != input.Confirmation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Hashing password failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), input.Username, string(hash), h.cfg.InitialCash)
	if errors.Is(err, database.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		return
	}
	if err != nil {
		h.logger.Error("Creating user failed", "username", input.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user"})
		return
	}

	h.logger.Info("User registered", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Registered!",
		"user":     user,
		"cash_usd": formatMoney(user.Cash, h.cfg.Currency),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.users.FindUserByUsername(c.Request.Context(), strings.TrimSpace(input.Username))
	if err != nil {
		if !errors.Is(err, ledger.ErrUserNotFound) {
			h.logger.Error("Looking up user failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.issueTokens(c, user.ID)
}

// Refresh exchanges a refresh token for a new token pair. Each refresh token
// is accepted once.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	raw, err := h.tokens.Take(ctx, refreshKey(input.RefreshToken))
	if errors.Is(err, cache.ErrMiss) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	if err != nil {
		h.logger.Error("Reading refresh token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading refresh token"})
		return
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.logger.Warn("Discarding malformed refresh token entry", "value", raw)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	if _, err := h.users.FindUserByID(ctx, uint(id)); err != nil {
		if !errors.Is(err, ledger.ErrUserNotFound) {
			h.logger.Error("Looking up user failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	h.issueTokens(c, uint(id))
}

// Logout revokes the caller's refresh token. Unknown tokens are ignored.
func (h *AuthHandler) Logout(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBind(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	key := refreshKey(input.RefreshToken)
	raw, err := h.tokens.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		h.logger.Error("Reading refresh token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error revoking refresh token"})
		return
	case raw == strconv.FormatUint(uint64(middleware.UserID(c)), 10):
		if err := h.tokens.Del(ctx, key); err != nil {
			h.logger.Error("Revoking refresh token failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error revoking refresh token"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) issueTokens(c *gin.Context, userID uint) {
	accessToken, err := middleware.GenerateToken(h.cfg.Secret, userID, h.cfg.AccessTTL)
	if err != nil {
		h.logger.Error("Signing access token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	refreshToken := uuid.NewString()
	err = h.tokens.Set(c.Request.Context(), refreshKey(refreshToken), strconv.FormatUint(uint64(userID), 10), h.cfg.RefreshTTL)
	if err != nil {
		h.logger.Error("Storing refresh token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int64(h.cfg.AccessTTL.Seconds()),
	})
}
