package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"networth/pkg/networth"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *networth.Core) http.Handler {
	return newRouter(core, networth.Today)
}

func newRouter(core *networth.Core, now func() time.Time) http.Handler {
	logger := core.Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, now: now}

	r.Get("/api/health", h.health)

	// Normalized series
	r.Get("/api/series", h.getSeries)
	r.Get("/api/breakdown/{category}", h.getBreakdown)
	r.Get("/api/convert", h.convert)

	// Reference data
	r.Get("/api/accounts", h.getAccounts)
	r.Get("/api/currencies", h.getCurrencies)
	r.Put("/api/currency", h.setDisplayCurrency)
	r.Get("/api/account-groups", h.getAccountGroups)

	// Balances
	r.Get("/api/balances", h.getBalances)
	r.Post("/api/balances", h.upsertBalances)
	r.Post("/api/import", h.importBalances)

	// Exchange rates
	r.Get("/api/rates", h.getRates)
	r.Post("/api/rates", h.upsertRates)
	r.Get("/api/rates/nearest", h.nearestRate)
	r.Post("/api/rates/import", h.importRates)
	r.Post("/api/rates/refresh", h.refreshRates)

	// Prices
	r.Post("/api/prices", h.upsertPrices)
	r.Get("/api/prices/nearest", h.nearestPrice)
	r.Post("/api/prices/refresh", h.refreshPrices)

	return r
}

type handler struct {
	core *networth.Core
	now  func() time.Time
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	noteError(w, "", message)
	writeJSON(w, status, ErrorResponse{Code: status, Message: message})
}
