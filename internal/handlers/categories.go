package handlers

import (
	"net/http"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/services"
)

func (h *Handlers) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Category.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	respondOK(w, categories)
}

func (h *Handlers) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	cat, err := h.Category.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cat)
}

func (h *Handlers) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.Category.CreateCategory(r.Context(), services.Category{
		Name:         req.Name,
		Gender:       req.Gender,
		BirthYearMin: req.BirthYearMin,
		BirthYearMax: req.BirthYearMax,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, CreatedResponse{ID: id})
}

func (h *Handlers) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var override models.StageOverride
	if err := decodeJSON(r, &override); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Category.SetOverride(r.Context(), id, override); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Override saved")
}

func (h *Handlers) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Category.ClearOverride(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleGetRules(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	rules, err := h.Category.ListRules(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if rules == nil {
		rules = []models.StageRule{}
	}
	respondOK(w, rules)
}

func (h *Handlers) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req StageRuleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ruleID, err := h.Category.AddRule(r.Context(), models.StageRule{
		CategoryID:          id,
		MinRiders:           req.MinRiders,
		EnableQualification: req.EnableQualification,
		EnableQuarterFinal:  req.EnableQuarterFinal,
		EnableSemiFinal:     req.EnableSemiFinal,
		FinalClasses:        req.FinalClasses,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, CreatedResponse{ID: ruleID})
}

// handleGetStages reports the resolved stage configuration. Resolution never
// fails; problems surface as a warning in the body.
func (h *Handlers) handleGetStages(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, h.Stages.Resolve(r.Context(), id))
}

func (h *Handlers) handleCreateBatches(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req BatchCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	plan, err := h.Heat.CreateBatches(r.Context(), id, req.RiderIDs, req.BatchSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, plan)
}

func (h *Handlers) handleAssignGates(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	n, err := h.Heat.AssignGates(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, GatesResponse{HeatsAssigned: n})
}

func (h *Handlers) handleBatchStandings(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	batch, err := parseIntParam(r, "batch")
	if err != nil {
		respondError(w, err)
		return
	}

	standings, err := h.Heat.BatchStandings(r.Context(), id, batch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, standings)
}

func (h *Handlers) handleComputeQualification(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	out, err := h.Bracket.ComputeQualification(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, out)
}

func (h *Handlers) handleComputeElimination(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	out, err := h.Bracket.ComputeElimination(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, out)
}

func (h *Handlers) handleStageResults(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var stage *models.Stage
	if q := r.URL.Query().Get("stage"); q != "" {
		s := models.Stage(q)
		stage = &s
	}

	rows, err := h.Bracket.StageResults(r.Context(), id, stage)
	if err != nil {
		respondError(w, err)
		return
	}
	if rows == nil {
		rows = []models.StageResult{}
	}
	respondOK(w, rows)
}

func (h *Handlers) handleGetCategoryHeats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	heats, err := h.Heat.ListHeats(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if heats == nil {
		heats = []models.Heat{}
	}
	respondOK(w, heats)
}
