package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"acumen/internal/service"
	"acumen/internal/transport/rest/handler"
	"acumen/internal/transport/rest/middleware"
	"acumen/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	LearnerService     *service.LearnerService
	SessionService     *service.SessionService
	BankService        *service.BankService
	MasteryService     *service.MasteryService
	CalibrationService *service.CalibrationService
	WSHub              *ws.Hub
	Logger             *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	learnerHandler := handler.NewLearnerHandler(c.LearnerService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	bankHandler := handler.NewBankHandler(c.BankService)
	masteryHandler := handler.NewMasteryHandler(c.MasteryService)
	calibrationHandler := handler.NewCalibrationHandler(c.CalibrationService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/learners", learnerHandler.Register).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")
	v1.HandleFunc("/ws/learners/{userId}/watch", wsHandler.WatchWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Learner routes (require learner auth)
	learnerRoutes := v1.NewRoute().Subrouter()
	learnerRoutes.Use(authMW.RequireLearner)

	learnerRoutes.HandleFunc("/learners/me", learnerHandler.Me).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/learners/me/peer-opt-in", learnerHandler.SetPeerOptIn).Methods("PUT", "OPTIONS")
	learnerRoutes.HandleFunc("/objectives", bankHandler.ListObjectives).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/objectives/{objectiveId}", bankHandler.GetObjective).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/objectives/{objectiveId}/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")
	learnerRoutes.HandleFunc("/objectives/{objectiveId}/mastery", masteryHandler.GetForObjective).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/sessions/{sessionId}/question", sessionHandler.CurrentQuestion).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/sessions/{sessionId}/responses", sessionHandler.Submit).Methods("POST", "OPTIONS")
	learnerRoutes.HandleFunc("/sessions/{sessionId}/end", sessionHandler.End).Methods("POST", "OPTIONS")
	learnerRoutes.HandleFunc("/sessions/{sessionId}/summary", sessionHandler.Summary).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/mastery", masteryHandler.ListMine).Methods("GET", "OPTIONS")
	learnerRoutes.HandleFunc("/calibration/peers", calibrationHandler.PeerReport).Methods("GET", "OPTIONS")

	// Instructor routes (require instructor auth)
	instructorRoutes := v1.NewRoute().Subrouter()
	instructorRoutes.Use(authMW.RequireInstructor)

	instructorRoutes.HandleFunc("/questions/flagged", bankHandler.FlaggedQuestions).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/learners/{userId}/mastery", masteryHandler.GetForLearner).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/calibration/peers/refresh", calibrationHandler.RefreshPool).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
