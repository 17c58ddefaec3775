package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"acumen/internal/model"
)

// CalibrationRepo handles MongoDB operations for calibration metrics.
// Metrics are append-only rows; each row is one correlation computed
// over a batch of responses.
type CalibrationRepo interface {
	Create(ctx context.Context, metric *model.CalibrationMetric) error
	GetByUser(ctx context.Context, userID string) ([]model.CalibrationMetric, error)

	// GetAll returns every metric row across users, for the peer
	// distribution refresh.
	GetAll(ctx context.Context) ([]model.CalibrationMetric, error)
}

type calibrationRepo struct {
	collection *mongo.Collection
}

// NewCalibrationRepo creates a new calibration metric repository
func NewCalibrationRepo(db *mongo.Database) CalibrationRepo {
	return &calibrationRepo{
		collection: db.Collection("calibration_metrics"),
	}
}

func (r *calibrationRepo) Create(ctx context.Context, metric *model.CalibrationMetric) error {
	if metric.ID == "" {
		metric.ID = primitive.NewObjectID().Hex()
	}
	if metric.ComputedAt.IsZero() {
		metric.ComputedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, metric)
	return err
}

func (r *calibrationRepo) GetByUser(ctx context.Context, userID string) ([]model.CalibrationMetric, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *calibrationRepo) GetAll(ctx context.Context) ([]model.CalibrationMetric, error) {
	return r.find(ctx, bson.M{})
}

func (r *calibrationRepo) find(ctx context.Context, filter bson.M) ([]model.CalibrationMetric, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var metrics []model.CalibrationMetric
	if err := cursor.All(ctx, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}
