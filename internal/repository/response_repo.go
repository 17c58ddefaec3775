package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"acumen/internal/model"
)

// ResponseRepo handles MongoDB operations for assessment responses
type ResponseRepo interface {
	Create(ctx context.Context, response *model.AssessmentResponse) error
	GetByUserAndObjective(ctx context.Context, userID, objectiveID string) ([]model.AssessmentResponse, error)

	// GetRecentByUser returns the user's latest responses across all
	// objectives, newest first.
	GetRecentByUser(ctx context.Context, userID string, limit int) ([]model.AssessmentResponse, error)

	// GetScoresByQuestion returns every score ever recorded against one
	// bank item, for discrimination recomputation.
	GetScoresByQuestion(ctx context.Context, questionID string) ([]float64, error)

	// GetLastAnswerTimes maps each question the user has answered for
	// the objective to the most recent time they answered it.
	GetLastAnswerTimes(ctx context.Context, userID, objectiveID string) (map[string]time.Time, error)

	// GetByUsers returns all responses from the given users, for
	// pool-wide overconfidence analysis.
	GetByUsers(ctx context.Context, userIDs []string) ([]model.AssessmentResponse, error)

	// GetBySession returns the responses recorded within one session,
	// oldest first.
	GetBySession(ctx context.Context, sessionID string) ([]model.AssessmentResponse, error)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) Create(ctx context.Context, response *model.AssessmentResponse) error {
	if response.ID == "" {
		response.ID = primitive.NewObjectID().Hex()
	}
	if response.RespondedAt.IsZero() {
		response.RespondedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, response)
	return err
}

func (r *responseRepo) GetByUserAndObjective(ctx context.Context, userID, objectiveID string) ([]model.AssessmentResponse, error) {
	return r.find(ctx, bson.M{"userId": userID, "objectiveId": objectiveID}, nil)
}

func (r *responseRepo) GetRecentByUser(ctx context.Context, userID string, limit int) ([]model.AssessmentResponse, error) {
	opts := options.Find().
		SetSort(bson.M{"respondedAt": -1}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

func (r *responseRepo) GetScoresByQuestion(ctx context.Context, questionID string) ([]float64, error) {
	responses, err := r.find(ctx, bson.M{"questionId": questionID}, nil)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(responses))
	for _, resp := range responses {
		scores = append(scores, resp.Score)
	}
	return scores, nil
}

func (r *responseRepo) GetLastAnswerTimes(ctx context.Context, userID, objectiveID string) (map[string]time.Time, error) {
	responses, err := r.GetByUserAndObjective(ctx, userID, objectiveID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time, len(responses))
	for _, resp := range responses {
		if at, ok := latest[resp.QuestionID]; !ok || resp.RespondedAt.After(at) {
			latest[resp.QuestionID] = resp.RespondedAt
		}
	}
	return latest, nil
}

func (r *responseRepo) GetByUsers(ctx context.Context, userIDs []string) ([]model.AssessmentResponse, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"userId": bson.M{"$in": userIDs}}, nil)
}

func (r *responseRepo) GetBySession(ctx context.Context, sessionID string) ([]model.AssessmentResponse, error) {
	opts := options.Find().SetSort(bson.M{"respondedAt": 1})
	return r.find(ctx, bson.M{"sessionId": sessionID}, opts)
}

func (r *responseRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.AssessmentResponse, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.collection.Find(ctx, filter, opts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var responses []model.AssessmentResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}
