package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"acumen/internal/cache"
	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/repository"
)

// CalibrationService accumulates confidence-accuracy metrics and serves
// the anonymous peer comparison. All pool aggregates sit behind the
// minimum-pool privacy gate; individual peers are never exposed.
type CalibrationService struct {
	calibrationRepo repository.CalibrationRepo
	responseRepo    repository.ResponseRepo
	learnerRepo     repository.LearnerRepo
	peers           cache.PeerCache
	params          engine.Params
	logger          *zap.Logger
	now             func() time.Time
}

// NewCalibrationService creates a new calibration service
func NewCalibrationService(
	calibrationRepo repository.CalibrationRepo,
	responseRepo repository.ResponseRepo,
	learnerRepo repository.LearnerRepo,
	peers cache.PeerCache,
	params engine.Params,
	logger *zap.Logger,
) *CalibrationService {
	return &CalibrationService{
		calibrationRepo: calibrationRepo,
		responseRepo:    responseRepo,
		learnerRepo:     learnerRepo,
		peers:           peers,
		params:          params,
		logger:          logger,
		now:             time.Now,
	}
}

// RecordSessionCalibration computes one correlation row from a finished
// session's responses and folds the user's refreshed aggregate into the
// peer pool. Sessions under the pair floor record nothing.
func (s *CalibrationService) RecordSessionCalibration(ctx context.Context, userID string, responses []model.AssessmentResponse) error {
	confidences := make([]float64, 0, len(responses))
	scores := make([]float64, 0, len(responses))
	for _, r := range responses {
		normalized, err := engine.NormalizeConfidence(r.Confidence)
		if err != nil {
			continue
		}
		confidences = append(confidences, normalized)
		scores = append(scores, r.Score)
	}

	correlation, err := engine.Correlation(confidences, scores)
	if err != nil {
		return fmt.Errorf("failed to correlate session: %w", err)
	}
	if correlation == nil {
		return nil
	}

	metric := &model.CalibrationMetric{
		UserID:           userID,
		CorrelationCoeff: *correlation,
		SampleSize:       len(scores),
		ComputedAt:       s.now(),
	}
	if err := s.calibrationRepo.Create(ctx, metric); err != nil {
		return fmt.Errorf("failed to store calibration metric: %w", err)
	}

	return s.refreshPoolMembership(ctx, userID)
}

// refreshPoolMembership recomputes the user's pooled correlation and
// writes it through to the peer ZSET, or removes them when consent or
// sample volume is missing.
func (s *CalibrationService) refreshPoolMembership(ctx context.Context, userID string) error {
	learner, err := s.learnerRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load learner: %w", err)
	}
	if learner == nil || !learner.PeerOptIn {
		return s.peers.RemoveUser(ctx, userID)
	}

	metrics, err := s.calibrationRepo.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load calibration metrics: %w", err)
	}

	correlation, samples := engine.UserCorrelation(metrics)
	if samples < s.params.MinUserSamples {
		return s.peers.RemoveUser(ctx, userID)
	}
	return s.peers.SetCorrelation(ctx, userID, correlation)
}

// SyncPoolMembership re-evaluates a learner's peer pool presence after
// a consent change.
func (s *CalibrationService) SyncPoolMembership(ctx context.Context, userID string) error {
	return s.refreshPoolMembership(ctx, userID)
}

// PeerReport places the user inside the peer distribution. Returns
// InsufficientDataError when the user lacks samples or the pool is
// below the privacy floor.
func (s *CalibrationService) PeerReport(ctx context.Context, userID string) (*model.PeerReport, error) {
	metrics, err := s.calibrationRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration metrics: %w", err)
	}

	correlation, samples := engine.UserCorrelation(metrics)
	if samples < s.params.MinUserSamples {
		return nil, &engine.InsufficientDataError{
			Resource: "calibration samples",
			Have:     samples,
			Need:     s.params.MinUserSamples,
		}
	}

	dist, err := s.peers.GetDistribution(ctx)
	if err != nil {
		s.logger.Warn("distribution snapshot unavailable, rebuilding", zap.Error(err))
		dist = nil
	}
	if dist == nil {
		dist, err = s.RefreshPeerDistribution(ctx)
		if err != nil {
			return nil, err
		}
	}
	if dist.PoolSize < s.params.MinPeerPool {
		return nil, &engine.InsufficientDataError{
			Resource: "peer pool",
			Have:     dist.PoolSize,
			Need:     s.params.MinPeerPool,
		}
	}

	percentile := engine.Percentile(dist, correlation)

	topics, err := s.overconfidentTopics(ctx, dist.PoolSize)
	if err != nil {
		// The report is still useful without the topic breakdown.
		s.logger.Warn("overconfident topic aggregation failed", zap.Error(err))
		topics = nil
	}

	return &model.PeerReport{
		UserID:              userID,
		Correlation:         correlation,
		Strength:            engine.InterpretCorrelation(correlation),
		Percentile:          percentile,
		Quartile:            engine.QuartileRank(percentile),
		Distribution:        dist,
		OverconfidentTopics: topics,
		GeneratedAt:         s.now(),
	}, nil
}

// RefreshPeerDistribution rebuilds the pool from scratch: every
// opted-in learner with enough samples contributes one pooled
// correlation. Returns InsufficientDataError when the resulting pool is
// under the privacy floor.
func (s *CalibrationService) RefreshPeerDistribution(ctx context.Context) (*model.PeerDistribution, error) {
	learners, err := s.learnerRepo.GetOptedIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load opted-in learners: %w", err)
	}

	correlations := make([]float64, 0, len(learners))
	for _, learner := range learners {
		metrics, err := s.calibrationRepo.GetByUser(ctx, learner.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load metrics for pool: %w", err)
		}

		correlation, samples := engine.UserCorrelation(metrics)
		if samples < s.params.MinUserSamples {
			if err := s.peers.RemoveUser(ctx, learner.ID); err != nil {
				s.logger.Warn("failed to drop thin-sample user from pool",
					zap.String("userId", learner.ID), zap.Error(err))
			}
			continue
		}

		if err := s.peers.SetCorrelation(ctx, learner.ID, correlation); err != nil {
			return nil, fmt.Errorf("failed to update peer pool: %w", err)
		}
		correlations = append(correlations, correlation)
	}

	if len(correlations) < s.params.MinPeerPool {
		return nil, &engine.InsufficientDataError{
			Resource: "peer pool",
			Have:     len(correlations),
			Need:     s.params.MinPeerPool,
		}
	}

	dist := engine.BuildDistribution(correlations, s.now())
	if err := s.peers.SetDistribution(ctx, dist); err != nil {
		s.logger.Warn("failed to snapshot distribution", zap.Error(err))
	}

	s.logger.Info("peer distribution refreshed",
		zap.Int("poolSize", dist.PoolSize),
		zap.Float64("median", dist.Median))
	return dist, nil
}

// overconfidentTopics aggregates pool-wide overconfidence by concept
// from the opted-in users' response histories.
func (s *CalibrationService) overconfidentTopics(ctx context.Context, poolSize int) ([]model.OverconfidentTopic, error) {
	learners, err := s.learnerRepo.GetOptedIn(ctx)
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(learners))
	for _, learner := range learners {
		userIDs = append(userIDs, learner.ID)
	}

	responses, err := s.responseRepo.GetByUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	return engine.OverconfidentTopics(responses, poolSize, s.params), nil
}
