package main

import (
	"net/http"

	"go.uber.org/zap"

	httphandlers "bankapi/internal/interfaces/http"
	"bankapi/internal/shared/config"
	"bankapi/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Unknown routes answer with JSON
	mux.HandleFunc("/", httphandlers.HandleNotFound)

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Account lifecycle
	mux.HandleFunc("/accounts", deps.AccountHandler.HandleAccounts)
	mux.HandleFunc("/accounts/{id}", deps.AccountHandler.HandleAccountByID)
	mux.HandleFunc("/accounts/block/{id}", deps.AccountHandler.HandleBlock)
	mux.HandleFunc("/accounts/close/{id}", deps.AccountHandler.HandleClose)

	// Money movement
	mux.HandleFunc("/accounts/deposit", deps.TransactionHandler.HandleDeposit)
	mux.HandleFunc("/accounts/withdraw", deps.TransactionHandler.HandleWithdraw)
	mux.HandleFunc("/accounts/transactions/{id}/{$}", deps.TransactionHandler.HandleHistory)

	// Reporting
	mux.HandleFunc("/accounts/statement/{id}", deps.ReportHandler.HandleStatement)
	mux.HandleFunc("/accounts/statement/pdf/{id}", deps.ReportHandler.HandleStatementPDF)
	mux.HandleFunc("/accounts/interest/{id}", deps.ReportHandler.HandleInterest)

	// Apply global middleware, outermost last
	var handler http.Handler = mux
	handler = middleware.Tracing(handler)
	handler = middleware.CORS(cfg.Server.AllowedOrigins)(handler)
	handler = middleware.NoSniff(handler)
	handler = middleware.Logging(log)(handler)
	handler = middleware.Recover(log)(handler)

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Info("TLS security middleware enabled (HSTS)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	}

	return handler
}
