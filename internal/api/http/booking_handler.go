package http

import (
	"net/http"
	"strings"
	"time"

	"parkspace-backend/internal/domain"
)

const idempotencyKeyHeader = "Idempotency-Key"

type quoteRequest struct {
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	DurationType domain.DurationType `json:"duration_type"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := h.bookings.QuoteBooking(r.Context(), id, req.StartTime, req.EndTime, req.DurationType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// CreateBooking answers 201 for a new booking, 200 when an Idempotency-Key
// replays an earlier one, and the error envelope plus the rejected attempt
// otherwise.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateBookingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))

	result, err := h.bookings.CreateBooking(r.Context(), PrincipalFrom(r.Context()), in)
	if err != nil {
		writeRejection(w, r, err, result)
		return
	}
	status := http.StatusCreated
	if result.Replay {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bookings.GetBooking(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := h.limits.page(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.bookings.ListMyBookings(r.Context(), PrincipalFrom(r.Context()), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Booking]{Items: list, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) ListLotBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := h.limits.page(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.bookings.ListLotBookings(r.Context(), PrincipalFrom(r.Context()), id, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Booking]{Items: list, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	b, err := h.bookings.CancelBooking(r.Context(), PrincipalFrom(r.Context()), id, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
