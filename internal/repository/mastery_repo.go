package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"acumen/internal/model"
)

// MasteryRepo handles MongoDB operations for mastery verifications.
// One document per (user, objective) pair, replaced on every
// re-evaluation.
type MasteryRepo interface {
	Save(ctx context.Context, verification *model.MasteryVerification) error
	GetByUserAndObjective(ctx context.Context, userID, objectiveID string) (*model.MasteryVerification, error)
	GetByUser(ctx context.Context, userID string) ([]*model.MasteryVerification, error)
}

type masteryRepo struct {
	collection *mongo.Collection
}

// NewMasteryRepo creates a new mastery repository
func NewMasteryRepo(db *mongo.Database) MasteryRepo {
	return &masteryRepo{
		collection: db.Collection("mastery_verifications"),
	}
}

func (r *masteryRepo) Save(ctx context.Context, verification *model.MasteryVerification) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{
		"userId":      verification.UserID,
		"objectiveId": verification.ObjectiveID,
	}
	_, err := r.collection.ReplaceOne(ctx, filter, verification, opts)
	return err
}

func (r *masteryRepo) GetByUserAndObjective(ctx context.Context, userID, objectiveID string) (*model.MasteryVerification, error) {
	var verification model.MasteryVerification
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "objectiveId": objectiveID}).Decode(&verification)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &verification, nil
}

func (r *masteryRepo) GetByUser(ctx context.Context, userID string) ([]*model.MasteryVerification, error) {
	opts := options.Find().SetSort(bson.M{"objectiveId": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var verifications []*model.MasteryVerification
	if err := cursor.All(ctx, &verifications); err != nil {
		return nil, err
	}
	return verifications, nil
}
