package handler

import (
	"encoding/json"
	"net/http"

	"acumen/internal/model"
	"acumen/internal/service"
	"acumen/internal/transport/rest/middleware"
)

// LearnerHandler handles learner account endpoints
type LearnerHandler struct {
	learnerSvc *service.LearnerService
}

// NewLearnerHandler creates a new learner handler
func NewLearnerHandler(learnerSvc *service.LearnerService) *LearnerHandler {
	return &LearnerHandler{learnerSvc: learnerSvc}
}

// Register handles POST /v1/learners
func (h *LearnerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterLearnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.learnerSvc.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Me handles GET /v1/learners/me
func (h *LearnerHandler) Me(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	learner, err := h.learnerSvc.Get(r.Context(), learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, learner)
}

// ConsentRequest is the request body for the peer comparison flag
type ConsentRequest struct {
	PeerOptIn bool `json:"peerOptIn"`
}

// SetPeerOptIn handles PUT /v1/learners/me/peer-opt-in
func (h *LearnerHandler) SetPeerOptIn(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	learner, err := h.learnerSvc.SetPeerOptIn(r.Context(), learnerID, req.PeerOptIn)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, learner)
}
