package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"acumen/internal/model"
)

// QuestionRepo handles MongoDB operations for the question bank
type QuestionRepo interface {
	Create(ctx context.Context, question *model.QuestionBankItem) error
	GetByID(ctx context.Context, id string) (*model.QuestionBankItem, error)
	GetByObjective(ctx context.Context, objectiveID string) ([]*model.QuestionBankItem, error)
	GetFlagged(ctx context.Context, objectiveID string) ([]*model.QuestionBankItem, error)

	// MarkUsed atomically bumps the usage counter and stamps the last
	// use, so concurrent sessions never lose an increment.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error

	// SetDiscrimination stores a recomputed index together with the flag
	// state it implies; an empty reason clears any existing flag.
	SetDiscrimination(ctx context.Context, id string, index float64, flagReason string) error
}

type questionRepo struct {
	collection *mongo.Collection
}

// NewQuestionRepo creates a new question bank repository
func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

func (r *questionRepo) Create(ctx context.Context, question *model.QuestionBankItem) error {
	if question.ID == "" {
		question.ID = primitive.NewObjectID().Hex()
	}
	question.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, question)
	return err
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.QuestionBankItem, error) {
	var question model.QuestionBankItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) GetByObjective(ctx context.Context, objectiveID string) ([]*model.QuestionBankItem, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"objectiveId": objectiveID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.QuestionBankItem
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) GetFlagged(ctx context.Context, objectiveID string) ([]*model.QuestionBankItem, error) {
	// Unflagged items either omit the field or carry the cleared empty
	// string; both must stay out of the review queue.
	filter := bson.M{"flagReason": bson.M{"$exists": true, "$ne": ""}}
	if objectiveID != "" {
		filter["objectiveId"] = objectiveID
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.QuestionBankItem
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	update := bson.M{
		"$inc": bson.M{"timesUsed": 1},
		"$set": bson.M{"lastUsedAt": usedAt},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *questionRepo) SetDiscrimination(ctx context.Context, id string, index float64, flagReason string) error {
	update := bson.M{"$set": bson.M{
		"discriminationIndex": index,
		"flagReason":          flagReason,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
