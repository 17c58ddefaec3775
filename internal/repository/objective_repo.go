package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"acumen/internal/model"
)

// ObjectiveRepo handles MongoDB operations for learning objectives
type ObjectiveRepo interface {
	Create(ctx context.Context, objective *model.LearningObjective) error
	GetByID(ctx context.Context, id string) (*model.LearningObjective, error)
	GetAll(ctx context.Context) ([]*model.LearningObjective, error)
	Update(ctx context.Context, objective *model.LearningObjective) error
}

type objectiveRepo struct {
	collection *mongo.Collection
}

// NewObjectiveRepo creates a new objective repository
func NewObjectiveRepo(db *mongo.Database) ObjectiveRepo {
	return &objectiveRepo{
		collection: db.Collection("objectives"),
	}
}

func (r *objectiveRepo) Create(ctx context.Context, objective *model.LearningObjective) error {
	if objective.ID == "" {
		objective.ID = primitive.NewObjectID().Hex()
	}
	objective.CreatedAt = time.Now()
	objective.UpdatedAt = objective.CreatedAt

	_, err := r.collection.InsertOne(ctx, objective)
	return err
}

func (r *objectiveRepo) GetByID(ctx context.Context, id string) (*model.LearningObjective, error) {
	var objective model.LearningObjective
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&objective)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &objective, nil
}

func (r *objectiveRepo) GetAll(ctx context.Context) ([]*model.LearningObjective, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var objectives []*model.LearningObjective
	if err := cursor.All(ctx, &objectives); err != nil {
		return nil, err
	}
	return objectives, nil
}

func (r *objectiveRepo) Update(ctx context.Context, objective *model.LearningObjective) error {
	objective.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objective.ID}, objective)
	return err
}
