package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
)

type errorKind struct {
	err    error
	status int
	code   string
	// detailed kinds carry a caller-facing explanation in their message
	detailed bool
}

// errorKinds is checked in order; ErrInvalidTimeRange must precede ErrValidation.
var errorKinds = []errorKind{
	{domain.ErrInvalidTimeRange, http.StatusBadRequest, "invalid_time_range", false},
	{domain.ErrValidation, http.StatusBadRequest, "validation_error", true},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", true},
	{domain.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded", false},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed", true},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", false},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", false},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", false},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition", false},
	{domain.ErrDuplicateReservation, http.StatusConflict, "duplicate_reservation", false},
	{domain.ErrLotHasActiveBookings, http.StatusConflict, "lot_has_active_bookings", false},
	{domain.ErrPersistence, http.StatusInternalServerError, "persistence_error", false},
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error  errorBody             `json:"error"`
	Result *domain.BookingResult `json:"result,omitempty"`
}

// classify maps an error to its HTTP status and a message safe to show a caller.
func classify(err error) (int, errorBody) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			msg := k.err.Error()
			if k.detailed {
				msg = err.Error()
			}
			if k.status >= http.StatusInternalServerError {
				msg = "internal server error"
			}
			return k.status, errorBody{Code: k.code, Message: msg}
		}
	}
	return http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal server error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeRejection(w, r, err, nil)
}

// writeRejection writes the error envelope, attaching the rejected booking
// attempt when there is one.
func writeRejection(w http.ResponseWriter, r *http.Request, err error, result *domain.BookingResult) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorEnvelope{Error: body, Result: result})
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
