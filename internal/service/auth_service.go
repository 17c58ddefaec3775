package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"acumen/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService handles instructor and learner authentication
type AuthService struct {
	instructorUsername string
	instructorPassword string
	jwtSecret          []byte
}

// NewAuthService creates a new auth service
func NewAuthService() *AuthService {
	username := os.Getenv("INSTRUCTOR_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("INSTRUCTOR_PASSWORD")
	if password == "" {
		password = "password123"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "super-secret-key-change-in-production"
	}

	return &AuthService{
		instructorUsername: username,
		instructorPassword: password,
		jwtSecret:          []byte(secret),
	}
}

// Login validates instructor credentials and returns a permanent token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.instructorUsername || password != s.instructorPassword {
		return nil, ErrInvalidCredentials
	}

	instructorID := "in_" + newID()

	claims := &model.InstructorClaims{
		InstructorID: instructorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			// No expiry for MVP - permanent token
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:        tokenString,
		InstructorID: instructorID,
	}, nil
}

// ValidateInstructorToken validates an instructor JWT and returns claims
func (s *AuthService) ValidateInstructorToken(tokenString string) (*model.InstructorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.InstructorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.InstructorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateLearnerToken creates a long-lived token for a learner account
func (s *AuthService) GenerateLearnerToken(learnerID string) (string, error) {
	claims := &model.LearnerClaims{
		LearnerID: learnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(90 * 24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateLearnerToken validates a learner JWT and returns claims
func (s *AuthService) ValidateLearnerToken(tokenString string) (*model.LearnerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.LearnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.LearnerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
