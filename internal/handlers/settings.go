package handlers

import "net/http"

func (h *Handlers) handleGetBaseURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.Settings.GetBaseURL(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, BaseURLResponse{BaseURL: url})
}

func (h *Handlers) handleSetBaseURL(w http.ResponseWriter, r *http.Request) {
	var req BaseURLRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.BaseURL == "" {
		respondError(w, BadRequest("base_url is required"))
		return
	}

	if err := h.Settings.SetBaseURL(r.Context(), req.BaseURL); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Settings saved")
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, HealthResponse{Status: "ok"})
}
