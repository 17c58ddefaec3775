package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/repository"
)

// MasteryService evaluates the five-criterion mastery rubric against a
// learner's full response history and keeps the stored verification
// current. Evaluation is cheap, so reads recompute rather than trusting
// a stale document.
type MasteryService struct {
	masteryRepo   repository.MasteryRepo
	objectiveRepo repository.ObjectiveRepo
	responseRepo  repository.ResponseRepo
	params        engine.Params
	logger        *zap.Logger
	broadcaster   Broadcaster
	now           func() time.Time
}

func NewMasteryService(
	masteryRepo repository.MasteryRepo,
	objectiveRepo repository.ObjectiveRepo,
	responseRepo repository.ResponseRepo,
	params engine.Params,
	logger *zap.Logger,
) *MasteryService {
	return &MasteryService{
		masteryRepo:   masteryRepo,
		objectiveRepo: objectiveRepo,
		responseRepo:  responseRepo,
		params:        params,
		logger:        logger,
		now:           time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster (avoids import cycle)
func (s *MasteryService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Evaluate recomputes mastery for the pair, persists the result, and
// announces a fresh verification to watchers. The first VerifiedAt
// stamp survives every later recomputation, including ones where a
// broken streak drops the live status back to IN_PROGRESS.
func (s *MasteryService) Evaluate(ctx context.Context, userID, objectiveID string) (*model.MasteryVerification, error) {
	objective, err := s.objectiveRepo.GetByID(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load objective: %w", err)
	}
	if objective == nil {
		return nil, fmt.Errorf("objective %s: %w", objectiveID, engine.ErrNotFound)
	}

	responses, err := s.responseRepo.GetByUserAndObjective(ctx, userID, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	verification := engine.EvaluateMastery(userID, objective, responses, s.now(), s.params)

	prior, err := s.masteryRepo.GetByUserAndObjective(ctx, userID, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior verification: %w", err)
	}
	if prior != nil && prior.VerifiedAt != nil {
		verification.VerifiedAt = prior.VerifiedAt
	}

	if err := s.masteryRepo.Save(ctx, verification); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	newlyVerified := verification.Status == model.MasteryVerified &&
		(prior == nil || prior.Status != model.MasteryVerified)
	if newlyVerified {
		s.logger.Info("mastery verified",
			zap.String("userId", userID),
			zap.String("objectiveId", objectiveID))
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToWatchers(userID, "mastery_verified", map[string]interface{}{
				"userId":      userID,
				"objectiveId": objectiveID,
				"verifiedAt":  verification.VerifiedAt,
			})
		}
	}

	return verification, nil
}

// GetForUser returns every stored verification for the learner.
func (s *MasteryService) GetForUser(ctx context.Context, userID string) ([]*model.MasteryVerification, error) {
	return s.masteryRepo.GetByUser(ctx, userID)
}
