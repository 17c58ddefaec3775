package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/repository"
)

// LearnerService handles learner accounts: registration, lookup and
// the peer comparison consent flag.
type LearnerService struct {
	learnerRepo repository.LearnerRepo
	authSvc     *AuthService
	calibration *CalibrationService
	logger      *zap.Logger

	now func() time.Time
}

// NewLearnerService creates a new learner service
func NewLearnerService(
	learnerRepo repository.LearnerRepo,
	authSvc *AuthService,
	calibration *CalibrationService,
	logger *zap.Logger,
) *LearnerService {
	return &LearnerService{
		learnerRepo: learnerRepo,
		authSvc:     authSvc,
		calibration: calibration,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a learner account and issues its long-lived token.
func (s *LearnerService) Register(ctx context.Context, req *model.RegisterLearnerRequest) (*model.RegisterLearnerResponse, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, fmt.Errorf("display name is required: %w", engine.ErrInvalidParameters)
	}

	learner := &model.Learner{
		ID:          "lr_" + newID(),
		DisplayName: displayName,
		PeerOptIn:   req.PeerOptIn,
		CreatedAt:   s.now(),
	}
	if err := s.learnerRepo.Create(ctx, learner); err != nil {
		return nil, fmt.Errorf("failed to create learner: %w", err)
	}

	token, err := s.authSvc.GenerateLearnerToken(learner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue learner token: %w", err)
	}

	s.logger.Info("learner registered",
		zap.String("learnerId", learner.ID),
		zap.Bool("peerOptIn", learner.PeerOptIn))

	return &model.RegisterLearnerResponse{
		LearnerID: learner.ID,
		Token:     token,
	}, nil
}

// Get returns one learner account.
func (s *LearnerService) Get(ctx context.Context, userID string) (*model.Learner, error) {
	learner, err := s.learnerRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner: %w", err)
	}
	if learner == nil {
		return nil, fmt.Errorf("learner %s: %w", userID, engine.ErrNotFound)
	}
	return learner, nil
}

// SetPeerOptIn flips the consent flag and immediately syncs the peer
// pool, so opting out takes effect before the call returns.
func (s *LearnerService) SetPeerOptIn(ctx context.Context, userID string, optIn bool) (*model.Learner, error) {
	learner, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if learner.PeerOptIn == optIn {
		return learner, nil
	}

	if err := s.learnerRepo.SetPeerOptIn(ctx, userID, optIn); err != nil {
		return nil, fmt.Errorf("failed to update consent: %w", err)
	}
	learner.PeerOptIn = optIn

	if err := s.calibration.SyncPoolMembership(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to sync peer pool: %w", err)
	}

	s.logger.Info("peer consent updated",
		zap.String("learnerId", userID),
		zap.Bool("peerOptIn", optIn))
	return learner, nil
}
