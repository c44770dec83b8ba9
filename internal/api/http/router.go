// Package http exposes the lot directory and booking engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"parkspace-backend/internal/repository"
	"parkspace-backend/internal/security"
	"parkspace-backend/internal/service"
)

type Handler struct {
	lots     service.LotService
	bookings service.BookingService
	health   repository.Pinger
	limits   Limits
}

func NewHandler(lots service.LotService, bookings service.BookingService, health repository.Pinger, limits Limits) *Handler {
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 100
	}
	if limits.DefaultLimit <= 0 || limits.DefaultLimit > limits.MaxLimit {
		limits.DefaultLimit = min(50, limits.MaxLimit)
	}
	return &Handler{lots: lots, bookings: bookings, health: health, limits: limits}
}

// NewRouter registers every endpoint. Security levels per route live in
// config.EndpointSecurityConfig.
func NewRouter(h *Handler, tokens security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestContext, recoverPanics, authenticate(tokens))

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// "mine" routes first so they are not captured by {id}
	api.HandleFunc("/lots/mine", h.ListMyLots).Methods(http.MethodGet)
	api.HandleFunc("/lots", h.SearchLots).Methods(http.MethodGet)
	api.HandleFunc("/lots", h.CreateLot).Methods(http.MethodPost)
	api.HandleFunc("/lots/{id}", h.GetLot).Methods(http.MethodGet)
	api.HandleFunc("/lots/{id}", h.UpdateLot).Methods(http.MethodPut)
	api.HandleFunc("/lots/{id}", h.DeleteLot).Methods(http.MethodDelete)
	api.HandleFunc("/lots/{id}/quote", h.QuoteBooking).Methods(http.MethodPost)
	api.HandleFunc("/lots/{id}/stats", h.GetLotStats).Methods(http.MethodGet)
	api.HandleFunc("/lots/{id}/bookings", h.ListLotBookings).Methods(http.MethodGet)

	api.HandleFunc("/bookings/mine", h.ListMyBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost)

	return router
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
