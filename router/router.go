package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"stocks-simulator/cache"
	"stocks-simulator/handlers"
	"stocks-simulator/ledger"
	"stocks-simulator/middleware"
)

type Deps struct {
	Ledger   *ledger.Ledger
	Users    handlers.UserStore
	Prices   handlers.PriceArchive
	Quotes   ledger.Quoter
	Tokens   cache.Store
	Auth     handlers.AuthConfig
	Currency string
	Logger   *slog.Logger
}

func SetupRouter(d Deps) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	auth := handlers.NewAuthHandler(d.Users, d.Tokens, d.Auth, d.Logger)
	market := handlers.NewMarketHandler(d.Quotes, d.Prices, d.Currency, d.Logger)
	portfolio := handlers.NewPortfolioHandler(d.Ledger, d.Currency, d.Logger)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), middleware.NoCache())

	// Public routes
	r.POST("/register", auth.Register)
	r.POST("/login", auth.Login)
	r.POST("/refresh", auth.Refresh)

	// Protected routes
	api := r.Group("/")
	api.Use(middleware.JWTAuth(d.Auth.Secret))
	{
		api.POST("/logout", auth.Logout)

		api.GET("/quote/:symbol", market.GetQuote)
		api.GET("/prices/:symbol/history", market.GetPriceHistory)

		api.POST("/buy", portfolio.Buy)
		api.POST("/sell", portfolio.Sell)
		api.GET("/portfolio", portfolio.GetPortfolio)
		api.GET("/portfolio/chart", portfolio.GetChart)
		api.GET("/history", portfolio.GetHistory)
		api.GET("/history/export", portfolio.ExportHistory)
	}

	return r, nil
}
