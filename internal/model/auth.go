package model

import "github.com/golang-jwt/jwt/v5"

// InstructorClaims are JWT claims for instructor authentication
type InstructorClaims struct {
	InstructorID string `json:"instructorId"`
	jwt.RegisteredClaims
}

// LearnerClaims are JWT claims for learner-scoped tokens
type LearnerClaims struct {
	LearnerID string `json:"learnerId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for instructor login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token        string `json:"token"`
	InstructorID string `json:"instructorId"`
}

// RegisterLearnerRequest is the request body for learner registration
type RegisterLearnerRequest struct {
	DisplayName string `json:"displayName"`
	PeerOptIn   bool   `json:"peerOptIn"`
}

// RegisterLearnerResponse is returned when a learner registers
type RegisterLearnerResponse struct {
	LearnerID string `json:"learnerId"`
	Token     string `json:"token"`
}
