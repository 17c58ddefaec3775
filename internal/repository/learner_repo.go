package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"acumen/internal/model"
)

// LearnerRepo handles MongoDB operations for learner accounts
type LearnerRepo interface {
	Create(ctx context.Context, learner *model.Learner) error
	GetByID(ctx context.Context, id string) (*model.Learner, error)

	// GetOptedIn returns learners who agreed to anonymous peer
	// comparison; only these feed the peer pool.
	GetOptedIn(ctx context.Context) ([]*model.Learner, error)

	SetPeerOptIn(ctx context.Context, id string, optIn bool) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

type learnerRepo struct {
	collection *mongo.Collection
}

// NewLearnerRepo creates a new learner repository
func NewLearnerRepo(db *mongo.Database) LearnerRepo {
	return &learnerRepo{
		collection: db.Collection("learners"),
	}
}

func (r *learnerRepo) Create(ctx context.Context, learner *model.Learner) error {
	if learner.CreatedAt.IsZero() {
		learner.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, learner)
	return err
}

func (r *learnerRepo) GetByID(ctx context.Context, id string) (*model.Learner, error) {
	var learner model.Learner
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&learner)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &learner, nil
}

func (r *learnerRepo) GetOptedIn(ctx context.Context) ([]*model.Learner, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"peerOptIn": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var learners []*model.Learner
	if err := cursor.All(ctx, &learners); err != nil {
		return nil, err
	}
	return learners, nil
}

func (r *learnerRepo) SetPeerOptIn(ctx context.Context, id string, optIn bool) error {
	update := bson.M{"$set": bson.M{"peerOptIn": optIn}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *learnerRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastActiveAt": at}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
