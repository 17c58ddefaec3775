package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"acumen/internal/cache"
	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/repository"
)

// recentScoreWindow bounds how much cross-objective history seeds a new
// session's starting difficulty.
const recentScoreWindow = 10

var (
	// ErrNotSessionOwner indicates a caller touching someone else's session.
	ErrNotSessionOwner = errors.New("session does not belong to caller")

	// ErrQuestionMismatch indicates a response for a question that is not
	// the one currently presented, usually a stale or duplicate submission.
	ErrQuestionMismatch = errors.New("submitted question is not the session's current question")
)

// SessionService orchestrates adaptive sessions: it opens them at a
// history-informed difficulty, reacts to every scored response, and
// closes them when a termination rule fires. Mongo holds the durable
// session, Redis the hot copy; both are written through here.
type SessionService struct {
	sessionRepo    repository.SessionRepo
	responseRepo   repository.ResponseRepo
	learnerRepo    repository.LearnerRepo
	sessions       cache.SessionCache
	bankSvc        *BankService
	masterySvc     *MasteryService
	calibrationSvc *CalibrationService
	params         engine.Params
	logger         *zap.Logger
	broadcaster    Broadcaster
	now            func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepo,
	responseRepo repository.ResponseRepo,
	learnerRepo repository.LearnerRepo,
	sessions cache.SessionCache,
	bankSvc *BankService,
	masterySvc *MasteryService,
	calibrationSvc *CalibrationService,
	params engine.Params,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:    sessionRepo,
		responseRepo:   responseRepo,
		learnerRepo:    learnerRepo,
		sessions:       sessions,
		bankSvc:        bankSvc,
		masterySvc:     masterySvc,
		calibrationSvc: calibrationSvc,
		params:         params,
		logger:         logger,
		now:            time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster (avoids import cycle)
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartSession opens a session for the pair, or resumes the live one if
// the learner already has a session open for this objective.
func (s *SessionService) StartSession(ctx context.Context, userID, objectiveID string) (*model.StartSessionResponse, error) {
	objective, err := s.bankSvc.GetObjective(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load objective: %w", err)
	}
	if objective == nil {
		return nil, fmt.Errorf("objective %s: %w", objectiveID, engine.ErrNotFound)
	}

	existing, err := s.sessionRepo.GetLiveByUserAndObjective(ctx, userID, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for live session: %w", err)
	}
	if existing != nil {
		question, err := s.bankSvc.GetQuestion(ctx, existing.CurrentQuestionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load current question: %w", err)
		}
		if err := s.sessions.Set(ctx, existing); err != nil {
			s.logger.Warn("failed to cache session", zap.String("sessionId", existing.ID), zap.Error(err))
		}
		s.logger.Info("resuming live session",
			zap.String("sessionId", existing.ID),
			zap.String("userId", userID))
		return &model.StartSessionResponse{Session: existing, FirstQuestion: question}, nil
	}

	start, err := s.startingDifficulty(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &model.AdaptiveSession{
		ID:                "as_" + newID(),
		UserID:            userID,
		ObjectiveID:       objectiveID,
		State:             model.SessionInitializing,
		InitialDifficulty: start,
		CurrentDifficulty: start,
		CreatedAt:         now,
	}

	question, err := s.bankSvc.NextQuestion(ctx, userID, objectiveID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to pick first question: %w", err)
	}
	if question == nil {
		return nil, &engine.InsufficientDataError{Resource: "eligible questions", Have: 0, Need: 1}
	}

	session.State = model.SessionActive
	session.CurrentQuestionID = question.ID

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		s.logger.Warn("failed to cache session", zap.String("sessionId", session.ID), zap.Error(err))
	}
	if err := s.bankSvc.RecordPresented(ctx, question.ID); err != nil {
		s.logger.Warn("failed to record presentation", zap.String("questionId", question.ID), zap.Error(err))
	}
	if err := s.learnerRepo.TouchLastActive(ctx, userID, now); err != nil {
		s.logger.Warn("failed to touch learner activity", zap.String("userId", userID), zap.Error(err))
	}

	s.logger.Info("session started",
		zap.String("sessionId", session.ID),
		zap.String("userId", userID),
		zap.String("objectiveId", objectiveID),
		zap.Float64("startingDifficulty", start))
	s.emit(session, "question_presented", map[string]interface{}{
		"sessionId":  session.ID,
		"question":   question,
		"difficulty": session.CurrentDifficulty,
	})

	return &model.StartSessionResponse{Session: session, FirstQuestion: question}, nil
}

// GetSession loads a session the caller owns.
func (s *SessionService) GetSession(ctx context.Context, sessionID, userID string) (*model.AdaptiveSession, error) {
	return s.loadSession(ctx, sessionID, userID)
}

// CurrentQuestion returns the question awaiting an answer.
func (s *SessionService) CurrentQuestion(ctx context.Context, sessionID, userID string) (*model.QuestionBankItem, error) {
	session, err := s.loadSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, engine.ErrSessionTerminated
	}

	question, err := s.bankSvc.GetQuestion(ctx, session.CurrentQuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question == nil {
		return nil, fmt.Errorf("question %s: %w", session.CurrentQuestionID, engine.ErrNotFound)
	}
	return question, nil
}

// SubmitResponse records a scored answer and runs the full adaptive
// reaction: calibration feedback, ability update, difficulty
// adjustment, periodic recalibration, break and termination checks, and
// selection of the next question.
func (s *SessionService) SubmitResponse(ctx context.Context, sessionID, userID string, req *model.SubmitResponseRequest) (*model.SubmitResponseResponse, error) {
	session, err := s.loadSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, engine.ErrSessionTerminated
	}
	if req.QuestionID != session.CurrentQuestionID {
		return nil, ErrQuestionMismatch
	}
	if req.Score < 0 || req.Score > 100 {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidScore, req.Score)
	}
	if !req.Confidence.IsValid() {
		return nil, fmt.Errorf("%w: %d", engine.ErrInvalidConfidence, int(req.Confidence))
	}
	if !req.AssessmentType.IsValid() {
		return nil, fmt.Errorf("unknown assessment type %q: %w", req.AssessmentType, engine.ErrInvalidParameters)
	}

	question, err := s.bankSvc.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question == nil {
		return nil, fmt.Errorf("question %s: %w", req.QuestionID, engine.ErrNotFound)
	}

	// Transient states fold back to ACTIVE once the learner answers again.
	if session.State != model.SessionActive && engine.CanTransition(session.State, model.SessionActive) {
		session.State = model.SessionActive
	}

	now := s.now()
	feedback, err := engine.Feedback(req.Confidence, req.Score, s.params)
	if err != nil {
		return nil, err
	}

	response := &model.AssessmentResponse{
		UserID:           userID,
		ObjectiveID:      session.ObjectiveID,
		QuestionID:       question.ID,
		SessionID:        session.ID,
		ConceptName:      question.ConceptName,
		Score:            req.Score,
		Confidence:       req.Confidence,
		AssessmentType:   req.AssessmentType,
		DifficultyLevel:  question.DifficultyLevel,
		CalibrationDelta: feedback.Delta,
		RespondedAt:      now,
	}
	if err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to record response: %w", err)
	}

	estimator := s.estimatorFor(session)
	if err := estimator.Observe(question.DifficultyLevel, req.Score/100); err != nil {
		return nil, err
	}
	theta := estimator.Theta()
	ci := estimator.ConfidenceInterval()
	session.IRTEstimate = &theta
	session.ConfidenceInterval = &ci
	session.IRTInformation = estimator.Information()

	next, adjustment := engine.AdjustDifficulty(session.CurrentDifficulty, req.Score, session.AdjustmentsUsed, s.params)
	session.Trajectory = append(session.Trajectory, model.TrajectoryEntry{
		QuestionID: question.ID,
		Difficulty: question.DifficultyLevel,
		Score:      req.Score,
		Adjustment: adjustment,
		Timestamp:  now,
	})
	session.QuestionCount++

	if adjustment != 0 {
		kind := model.AdaptationIncrease
		verb := "raised"
		if adjustment < 0 {
			kind = model.AdaptationDecrease
			verb = "lowered"
		}
		session.Adaptations = append(session.Adaptations, model.Adaptation{
			Kind:      kind,
			Magnitude: adjustment,
			Note:      fmt.Sprintf("difficulty %s %.0f -> %.0f", verb, session.CurrentDifficulty, next),
			At:        now,
		})
		session.CurrentDifficulty = next
		session.AdjustmentsUsed++
		s.emit(session, "difficulty_adjusted", map[string]interface{}{
			"sessionId":         session.ID,
			"adjustment":        adjustment,
			"currentDifficulty": session.CurrentDifficulty,
		})
	}

	// Periodic recalibration bypasses the per-session adjustment cap.
	if s.params.RecalibrationWindow > 0 && session.QuestionCount%s.params.RecalibrationWindow == 0 {
		if step := engine.RecalibrationStep(session.Trajectory, s.params); step != 0 {
			from := session.CurrentDifficulty
			session.CurrentDifficulty = clampDifficulty(from + step)
			session.Adaptations = append(session.Adaptations, model.Adaptation{
				Kind:      model.AdaptationRecalibration,
				Magnitude: step,
				Note:      fmt.Sprintf("recalibrated difficulty %.0f -> %.0f", from, session.CurrentDifficulty),
				At:        now,
			})
			if engine.CanTransition(session.State, model.SessionRecalibrating) {
				session.State = model.SessionRecalibrating
			}
			s.emit(session, "recalibrated", map[string]interface{}{
				"sessionId":         session.ID,
				"step":              step,
				"currentDifficulty": session.CurrentDifficulty,
			})
		}
	}

	breakRecommended := engine.ShouldRecommendBreak(session.Trajectory, session.CreatedAt, now, s.params)
	if breakRecommended && session.State == model.SessionActive && engine.CanTransition(session.State, model.SessionBreakRecommended) {
		session.State = model.SessionBreakRecommended
		session.Adaptations = append(session.Adaptations, model.Adaptation{
			Kind: model.AdaptationBreak,
			Note: fmt.Sprintf("break recommended after %d questions", session.QuestionCount),
			At:   now,
		})
		s.emit(session, "break_recommended", map[string]interface{}{
			"sessionId":     session.ID,
			"questionCount": session.QuestionCount,
		})
	}

	masteryVerified := false
	verification, err := s.masterySvc.Evaluate(ctx, userID, session.ObjectiveID)
	if err != nil {
		s.logger.Warn("mastery evaluation failed",
			zap.String("userId", userID),
			zap.String("objectiveId", session.ObjectiveID),
			zap.Error(err))
	} else if verification.Status == model.MasteryVerified {
		masteryVerified = true
	}

	reason := engine.TerminationCheck(session.QuestionCount, session.CreatedAt, now, masteryVerified, s.params)
	canStop := estimator.CanStopEarly(s.params)

	if err := s.bankSvc.RecordAnswered(ctx, userID, session.ObjectiveID, question.ID, now); err != nil {
		s.logger.Warn("failed to record cooldown", zap.String("questionId", question.ID), zap.Error(err))
	}
	s.bankSvc.EnqueueRecompute(question.ID)

	result := &model.SubmitResponseResponse{
		ResponseID:        response.ID,
		Feedback:          feedback,
		Adjustment:        adjustment,
		CurrentDifficulty: session.CurrentDifficulty,
		BreakRecommended:  breakRecommended,
		CanStopEarly:      canStop,
	}

	if reason != "" {
		result.Summary = s.terminate(ctx, session, reason, now)
		result.State = session.State
		result.Terminated = true
		result.TerminationReason = reason
		return result, nil
	}

	nextQuestion, err := s.bankSvc.NextQuestion(ctx, userID, session.ObjectiveID, session.CurrentDifficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to pick next question: %w", err)
	}
	if nextQuestion == nil {
		// Whole bank on cooldown. Close gracefully rather than stall.
		reason := model.TerminationMaxQuestions
		if canStop {
			reason = model.TerminationEarlyStop
		}
		s.logger.Info("question bank exhausted, closing session",
			zap.String("sessionId", session.ID),
			zap.String("reason", string(reason)))
		result.Summary = s.terminate(ctx, session, reason, now)
		result.State = session.State
		result.Terminated = true
		result.TerminationReason = reason
		return result, nil
	}

	session.CurrentQuestionID = nextQuestion.ID
	if err := s.bankSvc.RecordPresented(ctx, nextQuestion.ID); err != nil {
		s.logger.Warn("failed to record presentation", zap.String("questionId", nextQuestion.ID), zap.Error(err))
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	result.State = session.State
	result.NextQuestion = nextQuestion
	s.emit(session, "question_presented", map[string]interface{}{
		"sessionId":  session.ID,
		"question":   nextQuestion,
		"difficulty": session.CurrentDifficulty,
	})

	return result, nil
}

// EndSession handles a learner-initiated stop. A learner trending low
// gets one easier confidence-building question before the session
// closes; ending again (or when the trailing scores look fine) closes
// it for real, with EARLY_STOP recorded when the estimate had already
// converged.
func (s *SessionService) EndSession(ctx context.Context, sessionID, userID string) (*model.EndSessionResponse, error) {
	session, err := s.loadSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, engine.ErrSessionTerminated
	}

	now := s.now()
	if engine.NeedsStrategicEnding(session.Trajectory, s.params) && !hasAdaptation(session, model.AdaptationStrategicEnding) {
		target := clampDifficulty(session.CurrentDifficulty - s.params.DifficultyStep)
		final, err := s.bankSvc.NextQuestion(ctx, userID, session.ObjectiveID, target)
		if err != nil {
			return nil, fmt.Errorf("failed to pick final question: %w", err)
		}
		if final != nil {
			session.CurrentQuestionID = final.ID
			session.Adaptations = append(session.Adaptations, model.Adaptation{
				Kind:      model.AdaptationStrategicEnding,
				Magnitude: target - session.CurrentDifficulty,
				Note:      fmt.Sprintf("easier final question served at difficulty %.0f", target),
				At:        now,
			})
			if err := s.bankSvc.RecordPresented(ctx, final.ID); err != nil {
				s.logger.Warn("failed to record presentation", zap.String("questionId", final.ID), zap.Error(err))
			}
			if err := s.persist(ctx, session); err != nil {
				return nil, err
			}
			s.logger.Info("strategic ending question served",
				zap.String("sessionId", session.ID),
				zap.Float64("difficulty", target))
			s.emit(session, "question_presented", map[string]interface{}{
				"sessionId":  session.ID,
				"question":   final,
				"difficulty": target,
			})
			return &model.EndSessionResponse{FinalQuestion: final, State: session.State}, nil
		}
		// Nothing easier on offer, close as requested.
	}

	reason := model.TerminationManual
	if s.estimatorFor(session).CanStopEarly(s.params) {
		reason = model.TerminationEarlyStop
	}
	summary := s.terminate(ctx, session, reason, now)
	return &model.EndSessionResponse{
		Summary:           summary,
		State:             session.State,
		TerminationReason: reason,
	}, nil
}

// Summary returns the session report. Live sessions get a provisional
// one with the duration measured to now.
func (s *SessionService) Summary(ctx context.Context, sessionID, userID string) (*model.SessionSummary, error) {
	session, err := s.loadSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return engine.Summarize(session, s.now(), s.params), nil
}

// terminate closes the session and runs end-of-session bookkeeping.
// Bookkeeping failures are logged, never surfaced; the terminated state
// always lands.
func (s *SessionService) terminate(ctx context.Context, session *model.AdaptiveSession, reason model.TerminationReason, now time.Time) *model.SessionSummary {
	session.State = model.SessionTerminated
	session.TerminationReason = reason
	session.TerminatedAt = &now
	session.CurrentQuestionID = ""

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.logger.Error("failed to persist terminated session", zap.String("sessionId", session.ID), zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to evict session cache", zap.String("sessionId", session.ID), zap.Error(err))
	}

	responses, err := s.responseRepo.GetBySession(ctx, session.ID)
	if err != nil {
		s.logger.Warn("failed to load session responses for calibration", zap.String("sessionId", session.ID), zap.Error(err))
	} else if err := s.calibrationSvc.RecordSessionCalibration(ctx, session.UserID, responses); err != nil {
		s.logger.Warn("failed to record session calibration", zap.String("sessionId", session.ID), zap.Error(err))
	}

	summary := engine.Summarize(session, now, s.params)

	s.emit(session, "session_terminated", map[string]interface{}{
		"sessionId": session.ID,
		"reason":    string(reason),
		"summary":   summary,
	})
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSession(session.ID)
	}

	s.logger.Info("session terminated",
		zap.String("sessionId", session.ID),
		zap.String("userId", session.UserID),
		zap.String("reason", string(reason)),
		zap.Int("questions", session.QuestionCount))
	return summary
}

// loadSession prefers the cache and falls back to Mongo. Ownership is
// checked here so every session operation gets it for free.
func (s *SessionService) loadSession(ctx context.Context, sessionID, userID string) (*model.AdaptiveSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session cache read failed", zap.String("sessionId", sessionID), zap.Error(err))
	}
	if session == nil {
		session, err = s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, engine.ErrNotFound)
	}
	if session.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

func (s *SessionService) persist(ctx context.Context, session *model.AdaptiveSession) error {
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		s.logger.Warn("failed to cache session", zap.String("sessionId", session.ID), zap.Error(err))
	}
	return nil
}

func (s *SessionService) startingDifficulty(ctx context.Context, userID string) (float64, error) {
	recent, err := s.responseRepo.GetRecentByUser(ctx, userID, recentScoreWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to load recent responses: %w", err)
	}

	scores := make([]float64, 0, len(recent))
	var deltaSum float64
	for _, r := range recent {
		scores = append(scores, r.Score)
		deltaSum += r.CalibrationDelta
	}
	var meanDelta float64
	if len(recent) > 0 {
		meanDelta = deltaSum / float64(len(recent))
	}
	return engine.StartingDifficulty(scores, meanDelta), nil
}

// estimatorFor rebuilds the ability estimator from the session's stored
// state. QuestionCount doubles as the observation count because every
// scored response feeds exactly one observation.
func (s *SessionService) estimatorFor(session *model.AdaptiveSession) *engine.Estimator {
	if session.IRTEstimate == nil {
		return engine.NewEstimator()
	}
	return engine.RestoreEstimator(*session.IRTEstimate, session.IRTInformation, session.QuestionCount)
}

// emit fans an event out to the session socket and to any instructor
// watching the learner.
func (s *SessionService) emit(session *model.AdaptiveSession, msgType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToSession(session.ID, msgType, payload)
	s.broadcaster.BroadcastToWatchers(session.UserID, msgType, payload)
}

func hasAdaptation(session *model.AdaptiveSession, kind model.AdaptationKind) bool {
	for _, a := range session.Adaptations {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

func clampDifficulty(d float64) float64 {
	return math.Min(100, math.Max(0, d))
}
