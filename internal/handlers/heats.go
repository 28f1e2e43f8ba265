package handlers

import (
	"net/http"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/services"
)

func (h *Handlers) handleGetLineup(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	lineup, err := h.Heat.Lineup(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, lineup)
}

func (h *Handlers) handleGetHeatQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Heat.HeatQRCode(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) handleSubmitResults(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req ResultsSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entries := make([]services.ResultEntry, len(req.Results))
	for i, e := range req.Results {
		entries[i] = services.ResultEntry{
			RiderID:     e.RiderID,
			Status:      models.ResultStatus(e.Status),
			FinishOrder: e.FinishOrder,
		}
	}

	out, err := h.Heat.SubmitResults(r.Context(), id, entries)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, out)
}

func (h *Handlers) handleStartHeat(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	heat, err := h.Heat.StartHeat(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, heat)
}

func (h *Handlers) handleSetHeatStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req HeatStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	status, err := models.ParseHeatStatus(req.Status)
	if err != nil {
		respondError(w, BadRequest(err.Error()))
		return
	}

	heat, err := h.Heat.Transition(r.Context(), id, status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, heat)
}

func (h *Handlers) handleSetHeatPublished(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req HeatPublishedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	heat, err := h.Heat.SetPublished(r.Context(), id, req.Published)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, heat)
}

func (h *Handlers) handleGetPenalties(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	penalties, err := h.Heat.ListPenalties(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if penalties == nil {
		penalties = []models.Penalty{}
	}
	respondOK(w, penalties)
}

func (h *Handlers) handleCreatePenalty(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req PenaltyCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	penaltyID, err := h.Heat.AddPenalty(r.Context(), id, req.RiderID, req.Points, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, CreatedResponse{ID: penaltyID})
}

func (h *Handlers) handleApprovePenalty(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Heat.ApprovePenalty(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Penalty approved")
}
