package handlers

import (
	"net/http"

	"github.com/abrezinsky/gaterace/internal/models"
)

func (h *Handlers) handleGetRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := h.Rider.ListRiders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if riders == nil {
		riders = []models.Rider{}
	}
	respondOK(w, riders)
}

func (h *Handlers) handleCreateRider(w http.ResponseWriter, r *http.Request) {
	var req RiderCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.Rider.CreateRider(r.Context(), models.Rider{
		Name:      req.Name,
		Plate:     req.Plate,
		BirthYear: req.BirthYear,
		Gender:    req.Gender,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, CreatedResponse{ID: id})
}

func (h *Handlers) handleSetRiderAbsent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req RiderAbsentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Rider.SetAbsent(r.Context(), id, req.Absent); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Rider updated")
}
