// Package routes defines the API routing configuration.
// It wires repositories, services and handlers and applies the auth
// middleware to the protected route group.
package routes

import (
	"kantor/internal/config"
	"kantor/internal/handlers"
	"kantor/internal/metrics"
	"kantor/internal/middleware"
	"kantor/internal/repositories"
	"kantor/internal/services/auth"
	"kantor/internal/services/ledger"
	"kantor/internal/services/rates"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, logger *zap.Logger) {
	balanceRepo := repositories.NewBalanceRepository(repositories.DB)
	transactionRepo := repositories.NewTransactionRepository(repositories.DB)
	userRepo := repositories.NewUserRepository(repositories.DB)

	nbpClient := rates.NewNBPClient(
		config.GetEnv("NBP_BASE_URL", rates.DefaultBaseURL),
		config.GetDurationEnv("NBP_TIMEOUT", rates.DefaultTimeout),
		logger,
	)
	rateProvider := rates.NewCachingProvider(nbpClient, repositories.CacheService, logger)

	authService := auth.NewService(userRepo, balanceRepo, logger)
	ledgerService := ledger.NewService(
		balanceRepo,
		transactionRepo,
		rateProvider,
		ledger.Config{MaxConflictRetries: config.GetIntEnv("LEDGER_MAX_RETRIES", 3)},
		metrics.NewLedgerMetrics(),
		logger,
	)

	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	ratesHandler := handlers.NewRatesHandler(rateProvider)

	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Post("/auth/register", authHandler.RegisterUser)
	api.Post("/auth/login", authHandler.LoginUser)
	api.Post("/auth/refresh", authHandler.RefreshToken)

	authenticated := api.Use(authMiddleware.Handler)
	authenticated.Post("/auth/logout", authHandler.LogoutUser)

	authenticated.Get("/rates/current", ratesHandler.CurrentRates)
	authenticated.Get("/rates/history", ratesHandler.HistoricalRates)

	authenticated.Get("/wallet", walletHandler.GetWallet)
	authenticated.Post("/wallet/topup", walletHandler.TopUpWallet)

	authenticated.Post("/transactions/exchange", transactionHandler.Exchange)
	authenticated.Get("/transactions", transactionHandler.ListTransactions)
}
