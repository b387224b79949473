package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ccmarkets/engine/internal/auth"
)

// NewRouter builds the full HTTP handler: a versioned API subrouter split
// into public and bearer-authenticated routes, wrapped in permissive CORS
// the way the teacher's router does.
func NewRouter(h *Handler, authProvider *auth.Provider, allowedOrigins []string) http.Handler {
	root := mux.NewRouter()
	api := root.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	api.HandleFunc("/auth/initialize", h.Initialize).Methods(http.MethodPost)
	api.HandleFunc("/auth/user/{id}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/auth/users", h.ListUsers).Methods(http.MethodGet)

	api.HandleFunc("/markets", h.ListMarkets).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}", h.GetMarket).Methods(http.MethodGet)
	api.HandleFunc("/oracles/reports/{market_id}", h.ListReports).Methods(http.MethodGet)

	authenticated := api.PathPrefix("").Subrouter()
	authenticated.Use(authProvider.Middleware)
	authenticated.HandleFunc("/markets/submit", h.SubmitMarket).Methods(http.MethodPost)
	authenticated.HandleFunc("/markets/{id}/bet", h.PlaceBet).Methods(http.MethodPost)
	authenticated.HandleFunc("/markets/{id}", h.DeleteMarket).Methods(http.MethodDelete)
	authenticated.HandleFunc("/oracles/report", h.SubmitReport).Methods(http.MethodPost)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return corsHandler.Handler(root)
}
