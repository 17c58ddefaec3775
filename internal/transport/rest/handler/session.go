package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"acumen/internal/model"
	"acumen/internal/service"
	"acumen/internal/transport/rest/middleware"
)

// SessionHandler handles adaptive session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Start handles POST /v1/objectives/{objectiveId}/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	objectiveID := mux.Vars(r)["objectiveId"]

	resp, err := h.sessionSvc.StartSession(r.Context(), learnerID, objectiveID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessionSvc.GetSession(r.Context(), sessionID, learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// CurrentQuestion handles GET /v1/sessions/{sessionId}/question
func (h *SessionHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	question, err := h.sessionSvc.CurrentQuestion(r.Context(), sessionID, learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// Submit handles POST /v1/sessions/{sessionId}/responses
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	var req model.SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.sessionSvc.SubmitResponse(r.Context(), sessionID, learnerID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// End handles POST /v1/sessions/{sessionId}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	resp, err := h.sessionSvc.EndSession(r.Context(), sessionID, learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /v1/sessions/{sessionId}/summary
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	summary, err := h.sessionSvc.Summary(r.Context(), sessionID, learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
