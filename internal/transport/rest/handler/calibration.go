package handler

import (
	"net/http"

	"acumen/internal/service"
	"acumen/internal/transport/rest/middleware"
)

// CalibrationHandler handles confidence calibration endpoints
type CalibrationHandler struct {
	calibrationSvc *service.CalibrationService
}

// NewCalibrationHandler creates a new calibration handler
func NewCalibrationHandler(calibrationSvc *service.CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{calibrationSvc: calibrationSvc}
}

// PeerReport handles GET /v1/calibration/peers
func (h *CalibrationHandler) PeerReport(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	report, err := h.calibrationSvc.PeerReport(r.Context(), learnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// RefreshPool handles POST /v1/calibration/peers/refresh
func (h *CalibrationHandler) RefreshPool(w http.ResponseWriter, r *http.Request) {
	dist, err := h.calibrationSvc.RefreshPeerDistribution(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dist)
}
