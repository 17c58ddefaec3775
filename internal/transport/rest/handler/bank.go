package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"acumen/internal/engine"
	"acumen/internal/service"
)

// BankHandler handles learning objective and question bank endpoints
type BankHandler struct {
	bankSvc *service.BankService
}

// NewBankHandler creates a new bank handler
func NewBankHandler(bankSvc *service.BankService) *BankHandler {
	return &BankHandler{bankSvc: bankSvc}
}

// ListObjectives handles GET /v1/objectives
func (h *BankHandler) ListObjectives(w http.ResponseWriter, r *http.Request) {
	objectives, err := h.bankSvc.ListObjectives(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, objectives)
}

// GetObjective handles GET /v1/objectives/{objectiveId}
func (h *BankHandler) GetObjective(w http.ResponseWriter, r *http.Request) {
	objectiveID := mux.Vars(r)["objectiveId"]

	objective, err := h.bankSvc.GetObjective(r.Context(), objectiveID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if objective == nil {
		writeError(w, http.StatusNotFound, engine.ErrNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, objective)
}

// FlaggedQuestions handles GET /v1/questions/flagged?objectiveId=
func (h *BankHandler) FlaggedQuestions(w http.ResponseWriter, r *http.Request) {
	objectiveID := r.URL.Query().Get("objectiveId")

	flagged, err := h.bankSvc.FlaggedQuestions(r.Context(), objectiveID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flagged)
}
