package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"acumen/internal/engine"
	"acumen/internal/model"
)

type masteryHarness struct {
	clock       time.Time
	masteryRepo *fakeMasteryRepo
	objectives  *fakeObjectiveRepo
	responses   *fakeResponseRepo
	broadcaster *fakeBroadcaster
	svc         *MasteryService
}

func newMasteryHarness(t *testing.T) *masteryHarness {
	t.Helper()
	h := &masteryHarness{
		clock:       time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		masteryRepo: newFakeMasteryRepo(),
		objectives:  newFakeObjectiveRepo(),
		responses:   newFakeResponseRepo(),
		broadcaster: &fakeBroadcaster{},
	}
	h.svc = NewMasteryService(h.masteryRepo, h.objectives, h.responses, engine.DefaultParams(), zap.NewNop())
	h.svc.SetBroadcaster(h.broadcaster)
	h.svc.now = func() time.Time { return h.clock }

	_ = h.objectives.Create(context.Background(), &model.LearningObjective{
		ID:         "obj-m",
		Title:      "acid-base disorders",
		Complexity: model.ComplexityIntermediate,
	})
	return h
}

func (h *masteryHarness) addResponse(hoursAgo int, typ model.AssessmentType, score, difficulty, delta float64) {
	_ = h.responses.Create(context.Background(), &model.AssessmentResponse{
		UserID:           "lr_m",
		ObjectiveID:      "obj-m",
		QuestionID:       fmt.Sprintf("q-%dh", hoursAgo),
		ConceptName:      "acid base",
		Score:            score,
		Confidence:       model.ConfidenceSure,
		AssessmentType:   typ,
		DifficultyLevel:  difficulty,
		CalibrationDelta: delta,
		RespondedAt:      h.clock.Add(-time.Duration(hoursAgo) * time.Hour),
	})
}

func (h *masteryHarness) addRubricCompletingHistory() {
	h.addResponse(72, model.AssessmentComprehension, 85, 50, 0)
	h.addResponse(48, model.AssessmentClinicalReasoning, 90, 55, 5)
	h.addResponse(1, model.AssessmentComprehension, 88, 60, 10)
}

func TestEvaluateVerifiesAndStampsOnce(t *testing.T) {
	h := newMasteryHarness(t)
	ctx := context.Background()
	h.addRubricCompletingHistory()

	first, err := h.svc.Evaluate(ctx, "lr_m", "obj-m")
	require.NoError(t, err)

	assert.Equal(t, model.MasteryVerified, first.Status)
	assert.InDelta(t, 1.0, first.OverallProgress, 1e-9)
	require.NotNil(t, first.VerifiedAt)
	stampedAt := *first.VerifiedAt
	assert.True(t, stampedAt.Equal(h.clock))
	assert.Equal(t, []string{"mastery_verified"}, h.broadcaster.typesFor("watchers", "lr_m"))

	// Re-evaluating later keeps the original stamp and stays quiet.
	h.clock = h.clock.Add(2 * time.Hour)
	second, err := h.svc.Evaluate(ctx, "lr_m", "obj-m")
	require.NoError(t, err)

	assert.Equal(t, model.MasteryVerified, second.Status)
	require.NotNil(t, second.VerifiedAt)
	assert.True(t, second.VerifiedAt.Equal(stampedAt))
	assert.Equal(t, []string{"mastery_verified"}, h.broadcaster.typesFor("watchers", "lr_m"))
}

func TestEvaluateKeepsStampThroughRegression(t *testing.T) {
	h := newMasteryHarness(t)
	ctx := context.Background()
	h.addRubricCompletingHistory()

	first, err := h.svc.Evaluate(ctx, "lr_m", "obj-m")
	require.NoError(t, err)
	require.NotNil(t, first.VerifiedAt)
	stampedAt := *first.VerifiedAt

	// A later miss breaks the streak; the live status regresses but the
	// original verification date survives.
	h.clock = h.clock.Add(2 * time.Hour)
	h.addResponse(0, model.AssessmentComprehension, 40, 50, 30)

	regressed, err := h.svc.Evaluate(ctx, "lr_m", "obj-m")
	require.NoError(t, err)

	assert.Equal(t, model.MasteryInProgress, regressed.Status)
	assert.Less(t, regressed.OverallProgress, 1.0)
	require.NotNil(t, regressed.VerifiedAt)
	assert.True(t, regressed.VerifiedAt.Equal(stampedAt))

	stored, err := h.masteryRepo.GetByUserAndObjective(ctx, "lr_m", "obj-m")
	require.NoError(t, err)
	assert.Equal(t, model.MasteryInProgress, stored.Status)
}

func TestEvaluateUnknownObjective(t *testing.T) {
	h := newMasteryHarness(t)

	_, err := h.svc.Evaluate(context.Background(), "lr_m", "obj-missing")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestEvaluateWithoutResponses(t *testing.T) {
	h := newMasteryHarness(t)

	verification, err := h.svc.Evaluate(context.Background(), "lr_m", "obj-m")
	require.NoError(t, err)

	assert.Equal(t, model.MasteryNotStarted, verification.Status)
	assert.Zero(t, verification.OverallProgress)
	assert.Nil(t, verification.VerifiedAt)
	assert.Empty(t, h.broadcaster.typesFor("watchers", "lr_m"))
}

func TestGetForUser(t *testing.T) {
	h := newMasteryHarness(t)
	ctx := context.Background()
	_ = h.objectives.Create(ctx, &model.LearningObjective{
		ID:         "obj-n",
		Title:      "renal clearance",
		Complexity: model.ComplexityBasic,
	})

	_, err := h.svc.Evaluate(ctx, "lr_m", "obj-m")
	require.NoError(t, err)
	_, err = h.svc.Evaluate(ctx, "lr_m", "obj-n")
	require.NoError(t, err)

	all, err := h.svc.GetForUser(ctx, "lr_m")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "obj-m", all[0].ObjectiveID)
	assert.Equal(t, "obj-n", all[1].ObjectiveID)
}
