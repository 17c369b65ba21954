package persistence

import (
	"context"
	"time"

	"terastream/domain/model"
	"terastream/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ResolveHistoryRepository stores resolution events in MongoDB. All methods
// are nil-safe so the pipeline can run without Mongo configured.
type ResolveHistoryRepository struct {
	client   *mongo.Client
	database string
}

func NewResolveHistoryRepository(client *mongo.Client, database string) *ResolveHistoryRepository {
	return &ResolveHistoryRepository{client: client, database: database}
}

func (r *ResolveHistoryRepository) collection() *mongo.Collection {
	return r.client.Database(r.database).Collection("resolve_events")
}

func (r *ResolveHistoryRepository) Record(ctx context.Context, ev *model.ResolveEvent) error {
	if r.client == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection().InsertOne(ctx, ev)
	return err
}

func (r *ResolveHistoryRepository) Recent(ctx context.Context, limit int) ([]model.ResolveEvent, error) {
	if r.client == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}()

	var events []model.ResolveEvent
	for cursor.Next(ctx) {
		var ev model.ResolveEvent
		if err := cursor.Decode(&ev); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding resolve event")
			continue
		}
		events = append(events, ev)
	}
	return events, cursor.Err()
}
