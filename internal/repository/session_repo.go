package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"acumen/internal/model"
)

// SessionRepo handles MongoDB operations for adaptive sessions. Mongo
// is the durable store; the cache layer in front of it holds the hot
// copy during an active session.
type SessionRepo interface {
	Create(ctx context.Context, session *model.AdaptiveSession) error
	GetByID(ctx context.Context, id string) (*model.AdaptiveSession, error)
	Update(ctx context.Context, session *model.AdaptiveSession) error

	// GetLiveByUserAndObjective returns the user's non-terminated
	// session for the objective, if one exists.
	GetLiveByUserAndObjective(ctx context.Context, userID, objectiveID string) (*model.AdaptiveSession, error)

	GetByUser(ctx context.Context, userID string) ([]*model.AdaptiveSession, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.AdaptiveSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.AdaptiveSession, error) {
	var session model.AdaptiveSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.AdaptiveSession) error {
	// Upsert so a write-back from the cache cannot be lost if the
	// initial insert never reached Mongo.
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, opts)
	return err
}

func (r *sessionRepo) GetLiveByUserAndObjective(ctx context.Context, userID, objectiveID string) (*model.AdaptiveSession, error) {
	filter := bson.M{
		"userId":      userID,
		"objectiveId": objectiveID,
		"state":       bson.M{"$ne": model.SessionTerminated},
	}

	var session model.AdaptiveSession
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByUser(ctx context.Context, userID string) ([]*model.AdaptiveSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.AdaptiveSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
