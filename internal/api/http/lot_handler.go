package http

import (
	"net/http"

	"parkspace-backend/internal/domain"
)

func (h *Handler) SearchLots(w http.ResponseWriter, r *http.Request) {
	filter, err := h.limits.lotFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.lots.SearchLots(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.RankedLot]{
		Items: page.Lots, Total: page.Total, Limit: filter.Limit, Offset: filter.Offset,
	})
}

func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lot, err := h.lots.GetLot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (h *Handler) ListMyLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.lots.ListMyLots(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.ParkingLot]{Items: lots, Total: len(lots), Limit: len(lots)})
}

func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var in domain.LotInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	lot, err := h.lots.CreateLot(r.Context(), PrincipalFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}

func (h *Handler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.LotPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	lot, err := h.lots.UpdateLot(r.Context(), PrincipalFrom(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	permanent, err := queryBool(r.URL.Query(), "permanent", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.lots.DeleteLot(r.Context(), PrincipalFrom(r.Context()), id, permanent); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLotStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.lots.GetLotStats(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
