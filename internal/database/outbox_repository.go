package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketplace/internal/models"
)

type OutboxRepository struct {
	coll *mongo.Collection
}

func (r *OutboxRepository) Append(ctx context.Context, event *models.OutboxEvent) error {
	res, err := r.coll.InsertOne(ctx, event)
	if err != nil {
		return errors.Wrap(err, "outbox.append")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		event.ID = id
	}
	return nil
}

func (r *OutboxRepository) FetchPending(ctx context.Context, limit int64) ([]models.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.M{"status": models.OutboxPending}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "outbox.fetchPending")
	}
	defer cursor.Close(ctx)

	events := make([]models.OutboxEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "outbox.fetchPending decode")
	}
	return events, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status": models.OutboxSent,
		"sentAt": at,
	}})
	return errors.Wrap(err, "outbox.markSent")
}

func (r *OutboxRepository) MarkAttempt(ctx context.Context, id primitive.ObjectID, lastError string, failed bool) error {
	set := bson.M{"lastError": lastError}
	if failed {
		set["status"] = models.OutboxFailed
	}
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": set,
	})
	return errors.Wrap(err, "outbox.markAttempt")
}
