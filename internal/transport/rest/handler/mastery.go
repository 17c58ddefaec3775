package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"acumen/internal/service"
	"acumen/internal/transport/rest/middleware"
)

// MasteryHandler handles mastery verification endpoints
type MasteryHandler struct {
	masterySvc *service.MasteryService
}

// NewMasteryHandler creates a new mastery handler
func NewMasteryHandler(masterySvc *service.MasteryService) *MasteryHandler {
	return &MasteryHandler{masterySvc: masterySvc}
}

// GetForObjective handles GET /v1/objectives/{objectiveId}/mastery.
// The rubric is re-evaluated on read so the answer is never stale.
func (h *MasteryHandler) GetForObjective(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	objectiveID := mux.Vars(r)["objectiveId"]

	verification, err := h.masterySvc.Evaluate(r.Context(), learnerID, objectiveID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verification)
}

// ListMine handles GET /v1/mastery
func (h *MasteryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	verifications, err := h.masterySvc.GetForUser(r.Context(), learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifications)
}

// GetForLearner handles GET /v1/learners/{userId}/mastery, the
// instructor view of one learner's verification state.
func (h *MasteryHandler) GetForLearner(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	verifications, err := h.masterySvc.GetForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifications)
}
