package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"acumen/internal/model"
)

// In-memory fakes for the Mongo repositories and Redis caches. All of
// them are mutex-guarded because the bank service's recompute worker
// reaches into the repositories from its own goroutine.

type fakeObjectiveRepo struct {
	mu         sync.Mutex
	objectives map[string]*model.LearningObjective
}

func newFakeObjectiveRepo() *fakeObjectiveRepo {
	return &fakeObjectiveRepo{objectives: make(map[string]*model.LearningObjective)}
}

func (f *fakeObjectiveRepo) Create(_ context.Context, o *model.LearningObjective) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == "" {
		o.ID = fmt.Sprintf("obj-%d", len(f.objectives)+1)
	}
	f.objectives[o.ID] = o
	return nil
}

func (f *fakeObjectiveRepo) GetByID(_ context.Context, id string) (*model.LearningObjective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objectives[id], nil
}

func (f *fakeObjectiveRepo) GetAll(_ context.Context) ([]*model.LearningObjective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.LearningObjective, 0, len(f.objectives))
	for _, o := range f.objectives {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeObjectiveRepo) Update(_ context.Context, o *model.LearningObjective) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectives[o.ID] = o
	return nil
}

type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]*model.QuestionBankItem
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: make(map[string]*model.QuestionBankItem)}
}

func (f *fakeQuestionRepo) Create(_ context.Context, q *model.QuestionBankItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == "" {
		q.ID = fmt.Sprintf("q-%d", len(f.questions)+1)
	}
	f.questions[q.ID] = q
	return nil
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, id string) (*model.QuestionBankItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, nil
	}
	clone := *q
	return &clone, nil
}

func (f *fakeQuestionRepo) GetByObjective(_ context.Context, objectiveID string) ([]*model.QuestionBankItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.QuestionBankItem
	for _, q := range f.questions {
		if q.ObjectiveID == objectiveID {
			clone := *q
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestionRepo) GetFlagged(_ context.Context, objectiveID string) ([]*model.QuestionBankItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.QuestionBankItem
	for _, q := range f.questions {
		if q.FlagReason == "" {
			continue
		}
		if objectiveID != "" && q.ObjectiveID != objectiveID {
			continue
		}
		clone := *q
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestionRepo) MarkUsed(_ context.Context, id string, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return fmt.Errorf("question %s not found", id)
	}
	q.TimesUsed++
	at := usedAt
	q.LastUsedAt = &at
	return nil
}

func (f *fakeQuestionRepo) SetDiscrimination(_ context.Context, id string, index float64, flagReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return fmt.Errorf("question %s not found", id)
	}
	v := index
	q.DiscriminationIndex = &v
	q.FlagReason = flagReason
	return nil
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses []model.AssessmentResponse

	// scoresGate, when set, parks GetScoresByQuestion until the
	// channel is closed. Lets tests hold the recompute worker mid-job.
	scoresGate chan struct{}
	scoreCalls map[string]int
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{}
}

func (f *fakeResponseRepo) Create(_ context.Context, r *model.AssessmentResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = fmt.Sprintf("resp-%d", len(f.responses)+1)
	}
	f.responses = append(f.responses, *r)
	return nil
}

func (f *fakeResponseRepo) GetByUserAndObjective(_ context.Context, userID, objectiveID string) ([]model.AssessmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentResponse
	for _, r := range f.responses {
		if r.UserID == userID && r.ObjectiveID == objectiveID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResponseRepo) GetRecentByUser(_ context.Context, userID string, limit int) ([]model.AssessmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentResponse
	for _, r := range f.responses {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RespondedAt.After(out[j].RespondedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeResponseRepo) GetScoresByQuestion(_ context.Context, questionID string) ([]float64, error) {
	if f.scoresGate != nil {
		<-f.scoresGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scoreCalls == nil {
		f.scoreCalls = make(map[string]int)
	}
	f.scoreCalls[questionID]++
	var scores []float64
	for _, r := range f.responses {
		if r.QuestionID == questionID {
			scores = append(scores, r.Score)
		}
	}
	return scores, nil
}

func (f *fakeResponseRepo) scoreCallCount(questionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreCalls[questionID]
}

func (f *fakeResponseRepo) GetLastAnswerTimes(_ context.Context, userID, objectiveID string) (map[string]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]time.Time)
	for _, r := range f.responses {
		if r.UserID != userID || r.ObjectiveID != objectiveID {
			continue
		}
		if at, ok := latest[r.QuestionID]; !ok || r.RespondedAt.After(at) {
			latest[r.QuestionID] = r.RespondedAt
		}
	}
	return latest, nil
}

func (f *fakeResponseRepo) GetByUsers(_ context.Context, userIDs []string) ([]model.AssessmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		members[id] = true
	}
	var out []model.AssessmentResponse
	for _, r := range f.responses {
		if members[r.UserID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResponseRepo) GetBySession(_ context.Context, sessionID string) ([]model.AssessmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentResponse
	for _, r := range f.responses {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RespondedAt.Before(out[j].RespondedAt) })
	return out, nil
}

type fakeLearnerRepo struct {
	mu       sync.Mutex
	learners map[string]*model.Learner
	touched  []string
}

func newFakeLearnerRepo() *fakeLearnerRepo {
	return &fakeLearnerRepo{learners: make(map[string]*model.Learner)}
}

func (f *fakeLearnerRepo) Create(_ context.Context, l *model.Learner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.learners[l.ID] = l
	return nil
}

func (f *fakeLearnerRepo) GetByID(_ context.Context, id string) (*model.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.learners[id], nil
}

func (f *fakeLearnerRepo) GetOptedIn(_ context.Context) ([]*model.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Learner
	for _, l := range f.learners {
		if l.PeerOptIn {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLearnerRepo) SetPeerOptIn(_ context.Context, id string, optIn bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.learners[id]; ok {
		l.PeerOptIn = optIn
	}
	return nil
}

func (f *fakeLearnerRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.learners[id]; ok {
		l.LastActiveAt = at
	}
	f.touched = append(f.touched, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.AdaptiveSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.AdaptiveSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *model.AdaptiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.AdaptiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessionRepo) Update(_ context.Context, s *model.AdaptiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessionRepo) GetLiveByUserAndObjective(_ context.Context, userID, objectiveID string) (*model.AdaptiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.ObjectiveID == objectiveID && !s.State.IsTerminal() {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) GetByUser(_ context.Context, userID string) ([]*model.AdaptiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AdaptiveSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeSessionCache struct {
	mu       sync.Mutex
	sessions map[string]*model.AdaptiveSession
	getErr   error
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: make(map[string]*model.AdaptiveSession)}
}

func (f *fakeSessionCache) Set(_ context.Context, s *model.AdaptiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessionCache) Get(_ context.Context, id string) (*model.AdaptiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessionCache) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionCache) contains(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[id]
	return ok
}

type fakeCooldownCache struct {
	mu      sync.Mutex
	answers map[string]map[string]time.Time
	err     error
}

func newFakeCooldownCache() *fakeCooldownCache {
	return &fakeCooldownCache{answers: make(map[string]map[string]time.Time)}
}

func (f *fakeCooldownCache) key(userID, objectiveID string) string {
	return userID + "|" + objectiveID
}

func (f *fakeCooldownCache) MarkAnswered(_ context.Context, userID, objectiveID, questionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	k := f.key(userID, objectiveID)
	if f.answers[k] == nil {
		f.answers[k] = make(map[string]time.Time)
	}
	f.answers[k][questionID] = at
	return nil
}

func (f *fakeCooldownCache) RecentlyAnswered(_ context.Context, userID, objectiveID string, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for id, at := range f.answers[f.key(userID, objectiveID)] {
		if !at.Before(cutoff) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeCooldownCache) Prune(_ context.Context, userID, objectiveID string, cutoff time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for id, at := range f.answers[f.key(userID, objectiveID)] {
		if at.Before(cutoff) {
			delete(f.answers[f.key(userID, objectiveID)], id)
		}
	}
	return nil
}

type fakePeerCache struct {
	mu           sync.Mutex
	correlations map[string]float64
	dist         *model.PeerDistribution
}

func newFakePeerCache() *fakePeerCache {
	return &fakePeerCache{correlations: make(map[string]float64)}
}

func (f *fakePeerCache) SetCorrelation(_ context.Context, userID string, correlation float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.correlations[userID] = correlation
	return nil
}

func (f *fakePeerCache) RemoveUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.correlations, userID)
	return nil
}

func (f *fakePeerCache) PoolSize(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.correlations)), nil
}

func (f *fakePeerCache) GetCorrelations(_ context.Context) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, 0, len(f.correlations))
	for _, v := range f.correlations {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out, nil
}

func (f *fakePeerCache) SetDistribution(_ context.Context, dist *model.PeerDistribution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dist = dist
	return nil
}

func (f *fakePeerCache) GetDistribution(_ context.Context) (*model.PeerDistribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dist, nil
}

func (f *fakePeerCache) member(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.correlations[userID]
	return ok
}

type fakeCalibrationRepo struct {
	mu      sync.Mutex
	metrics []model.CalibrationMetric
}

func newFakeCalibrationRepo() *fakeCalibrationRepo {
	return &fakeCalibrationRepo{}
}

func (f *fakeCalibrationRepo) Create(_ context.Context, m *model.CalibrationMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = fmt.Sprintf("cal-%d", len(f.metrics)+1)
	}
	f.metrics = append(f.metrics, *m)
	return nil
}

func (f *fakeCalibrationRepo) GetByUser(_ context.Context, userID string) ([]model.CalibrationMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CalibrationMetric
	for _, m := range f.metrics {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCalibrationRepo) GetAll(_ context.Context) ([]model.CalibrationMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CalibrationMetric, len(f.metrics))
	copy(out, f.metrics)
	return out, nil
}

func (f *fakeCalibrationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.metrics)
}

type fakeMasteryRepo struct {
	mu    sync.Mutex
	saved map[string]*model.MasteryVerification
}

func newFakeMasteryRepo() *fakeMasteryRepo {
	return &fakeMasteryRepo{saved: make(map[string]*model.MasteryVerification)}
}

func (f *fakeMasteryRepo) pairKey(userID, objectiveID string) string {
	return userID + "|" + objectiveID
}

func (f *fakeMasteryRepo) Save(_ context.Context, v *model.MasteryVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *v
	f.saved[f.pairKey(v.UserID, v.ObjectiveID)] = &clone
	return nil
}

func (f *fakeMasteryRepo) GetByUserAndObjective(_ context.Context, userID, objectiveID string) (*model.MasteryVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.saved[f.pairKey(userID, objectiveID)]
	if !ok {
		return nil, nil
	}
	clone := *v
	return &clone, nil
}

func (f *fakeMasteryRepo) GetByUser(_ context.Context, userID string) ([]*model.MasteryVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.MasteryVerification
	for _, v := range f.saved {
		if v.UserID == userID {
			clone := *v
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectiveID < out[j].ObjectiveID })
	return out, nil
}

type broadcastEvent struct {
	target  string // "session" or "watchers"
	id      string
	msgType string
	payload interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	events       []broadcastEvent
	disconnected []string
}

func (f *fakeBroadcaster) BroadcastToSession(sessionID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{target: "session", id: sessionID, msgType: msgType, payload: payload})
}

func (f *fakeBroadcaster) BroadcastToWatchers(userID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{target: "watchers", id: userID, msgType: msgType, payload: payload})
}

func (f *fakeBroadcaster) DisconnectSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, sessionID)
}

// typesFor lists the message types delivered to one target, in order.
func (f *fakeBroadcaster) typesFor(target, id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.target == target && e.id == id {
			out = append(out, e.msgType)
		}
	}
	return out
}

func (f *fakeBroadcaster) sawDisconnect(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.disconnected {
		if id == sessionID {
			return true
		}
	}
	return false
}
