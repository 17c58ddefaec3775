package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"acumen/internal/cache"
	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/repository"
)

const recomputeTimeout = 10 * time.Second

// BankService owns question bank access: adaptive selection, usage
// accounting and the background discrimination recompute worker.
type BankService struct {
	questionRepo  repository.QuestionRepo
	objectiveRepo repository.ObjectiveRepo
	responseRepo  repository.ResponseRepo
	cooldowns     cache.CooldownCache
	params        engine.Params
	logger        *zap.Logger
	now           func() time.Time

	recomputeJobs chan string
	closeOnce     sync.Once
	workerDone    chan struct{}

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// NewBankService creates a new bank service and starts its recompute
// worker. Call Close on shutdown to drain it.
func NewBankService(
	questionRepo repository.QuestionRepo,
	objectiveRepo repository.ObjectiveRepo,
	responseRepo repository.ResponseRepo,
	cooldowns cache.CooldownCache,
	params engine.Params,
	logger *zap.Logger,
) *BankService {
	s := &BankService{
		questionRepo:  questionRepo,
		objectiveRepo: objectiveRepo,
		responseRepo:  responseRepo,
		cooldowns:     cooldowns,
		params:        params,
		logger:        logger,
		now:           time.Now,
		recomputeJobs: make(chan string, 64),
		workerDone:    make(chan struct{}),
		pending:       make(map[string]struct{}),
	}
	go s.runRecomputeWorker()
	return s
}

// ListObjectives returns every learning objective
func (s *BankService) ListObjectives(ctx context.Context) ([]*model.LearningObjective, error) {
	return s.objectiveRepo.GetAll(ctx)
}

// GetObjective returns one objective, nil when unknown
func (s *BankService) GetObjective(ctx context.Context, id string) (*model.LearningObjective, error) {
	return s.objectiveRepo.GetByID(ctx, id)
}

func (s *BankService) GetQuestion(ctx context.Context, id string) (*model.QuestionBankItem, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// NextQuestion picks the best eligible item near the target difficulty.
// The window widens progressively when the band is empty; a nil result
// means the whole bank for the objective is on cooldown.
func (s *BankService) NextQuestion(ctx context.Context, userID, objectiveID string, difficulty float64) (*model.QuestionBankItem, error) {
	candidates, err := s.candidateQuestions(ctx, userID, objectiveID, difficulty)
	if err != nil {
		return nil, err
	}
	return engine.SelectQuestion(candidates, engine.SelectionOptions{
		PreferUnused:         true,
		SortByDiscrimination: true,
		ExcludeRecent:        true,
	}), nil
}

func (s *BankService) candidateQuestions(ctx context.Context, userID, objectiveID string, difficulty float64) ([]*model.QuestionBankItem, error) {
	items, err := s.questionRepo.GetByObjective(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	eligible, err := s.withoutRecent(ctx, userID, objectiveID, engine.SortForLoad(items))
	if err != nil {
		return nil, err
	}

	// Widen the band before giving up: the near window first, then one
	// major step further, then the whole scale.
	windows := []float64{
		s.params.DifficultyWindow,
		s.params.DifficultyWindow + s.params.DifficultyStep,
		100,
	}
	for _, window := range windows {
		if pool := engine.FilterByDifficulty(eligible, difficulty, window); len(pool) > 0 {
			return pool, nil
		}
	}
	return nil, nil
}

// withoutRecent drops items the user answered inside the cooldown
// window. Redis serves the hot path; on cache failure the response
// history answers instead.
func (s *BankService) withoutRecent(ctx context.Context, userID, objectiveID string, items []*model.QuestionBankItem) ([]*model.QuestionBankItem, error) {
	now := s.now()
	cutoff := now.Add(-s.params.Cooldown)

	recent, err := s.cooldowns.RecentlyAnswered(ctx, userID, objectiveID, cutoff)
	if err != nil {
		s.logger.Warn("cooldown cache unavailable, using response history",
			zap.String("userId", userID), zap.Error(err))
		lastAnswered, repoErr := s.responseRepo.GetLastAnswerTimes(ctx, userID, objectiveID)
		if repoErr != nil {
			return nil, fmt.Errorf("failed to resolve cooldowns: %w", repoErr)
		}
		return engine.FilterCooldown(items, lastAnswered, now, s.params.Cooldown), nil
	}

	exclude := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		exclude[id] = struct{}{}
	}
	kept := make([]*model.QuestionBankItem, 0, len(items))
	for _, item := range items {
		if _, recent := exclude[item.ID]; !recent {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// RecordPresented bumps the usage counter when an item is shown
func (s *BankService) RecordPresented(ctx context.Context, questionID string) error {
	return s.questionRepo.MarkUsed(ctx, questionID, s.now())
}

// RecordAnswered starts the repeat-exposure cooldown for the item and
// prunes entries that have aged out of the window.
func (s *BankService) RecordAnswered(ctx context.Context, userID, objectiveID, questionID string, at time.Time) error {
	if err := s.cooldowns.MarkAnswered(ctx, userID, objectiveID, questionID, at); err != nil {
		return err
	}
	return s.cooldowns.Prune(ctx, userID, objectiveID, at.Add(-s.params.Cooldown))
}

// FlaggedQuestions returns items marked for instructor review; pass an
// empty objective id for all objectives.
func (s *BankService) FlaggedQuestions(ctx context.Context, objectiveID string) ([]*model.QuestionBankItem, error) {
	return s.questionRepo.GetFlagged(ctx, objectiveID)
}

// EnqueueRecompute schedules a discrimination recompute for the item.
// Jobs for an item already waiting in the queue are coalesced, since
// the recompute reads the full score history anyway. Never blocks a
// request path; when the queue is saturated the job is dropped and the
// next answer re-triggers it.
func (s *BankService) EnqueueRecompute(questionID string) {
	s.pendingMu.Lock()
	if _, queued := s.pending[questionID]; queued {
		s.pendingMu.Unlock()
		return
	}
	s.pending[questionID] = struct{}{}
	s.pendingMu.Unlock()

	select {
	case s.recomputeJobs <- questionID:
	default:
		s.clearPending(questionID)
		s.logger.Warn("recompute queue full, dropping job", zap.String("questionId", questionID))
	}
}

func (s *BankService) clearPending(questionID string) {
	s.pendingMu.Lock()
	delete(s.pending, questionID)
	s.pendingMu.Unlock()
}

// RecomputeDiscrimination recalculates the discrimination index from
// the item's full score history and stores the flag state it implies.
// Idempotent; safe to run repeatedly for the same item.
func (s *BankService) RecomputeDiscrimination(ctx context.Context, questionID string) error {
	scores, err := s.responseRepo.GetScoresByQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("failed to load score history: %w", err)
	}

	index := engine.Discrimination(scores, s.params.MinResponsesForDiscrimination)
	if index == nil {
		// Below the response floor; the index stays unset.
		return nil
	}

	reason := ""
	if *index < s.params.LowDiscrimination {
		reason = engine.LowDiscriminationReason
	}
	if err := s.questionRepo.SetDiscrimination(ctx, questionID, *index, reason); err != nil {
		return fmt.Errorf("failed to store discrimination index: %w", err)
	}

	if reason != "" {
		s.logger.Info("question flagged for review",
			zap.String("questionId", questionID),
			zap.Float64("index", *index))
	}
	return nil
}

func (s *BankService) runRecomputeWorker() {
	defer close(s.workerDone)
	for questionID := range s.recomputeJobs {
		s.recomputeOne(questionID)
	}
}

func (s *BankService) recomputeOne(questionID string) {
	// Clear before running so answers landing mid-recompute queue a
	// fresh pass over the newer history.
	s.clearPending(questionID)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recompute worker recovered", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	if err := s.RecomputeDiscrimination(ctx, questionID); err != nil {
		s.logger.Warn("discrimination recompute failed",
			zap.String("questionId", questionID), zap.Error(err))
	}
}

// Close stops the recompute worker after draining queued jobs
func (s *BankService) Close() {
	s.closeOnce.Do(func() {
		close(s.recomputeJobs)
		<-s.workerDone
	})
}
