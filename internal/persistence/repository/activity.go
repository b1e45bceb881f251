package repository

import (
	"context"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityTTL = 90 * 24 * time.Hour

type activityRepository struct {
	db *mongo.Database
}

func NewActivityRepository(db *mongo.Database) domain.ActivityRepository {
	return &activityRepository{
		db: db,
	}
}

func (r *activityRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.ActivityCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}

func (r *activityRepository) GetByEventType(ctx context.Context, eventType domain.ActivityType, from time.Time, to time.Time) ([]domain.ActivityLog, error) {
	filter := bson.M{
		"event_type": eventType,
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}

	return r.find(ctx, filter, 0)
}

func (r *activityRepository) GetByReportID(ctx context.Context, reportID string, limit int) ([]domain.ActivityLog, error) {
	return r.find(ctx, bson.M{"report_id": reportID}, limit)
}

func (r *activityRepository) Recent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *activityRepository) find(ctx context.Context, filter bson.M, limit int) ([]domain.ActivityLog, error) {
	collection := r.db.Collection(db.ActivityCollection)

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []domain.ActivityLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *activityRepository) Log(ctx context.Context, log *domain.ActivityLog) error {
	collection := r.db.Collection(db.ActivityCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *activityRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ActivityCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "report_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(activityTTL.Seconds())),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
