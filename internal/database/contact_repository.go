package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketplace/internal/models"
)

type ContactRepository struct {
	coll *mongo.Collection
}

func (r *ContactRepository) Insert(ctx context.Context, req *models.ContactRequest) error {
	res, err := r.coll.InsertOne(ctx, req)
	if err != nil {
		return errors.Wrap(err, "contacts.insert")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		req.ID = id
	}
	return nil
}

func (r *ContactRepository) FindByOrderIDs(ctx context.Context, orderIDs []primitive.ObjectID) ([]models.ContactRequest, error) {
	contacts := make([]models.ContactRequest, 0)
	if len(orderIDs) == 0 {
		return contacts, nil
	}

	cursor, err := r.coll.Find(ctx,
		bson.M{"orderId": bson.M{"$in": orderIDs}},
		options.Find().SetSort(newestFirst),
	)
	if err != nil {
		return nil, errors.Wrap(err, "contacts.findByOrderIDs")
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, errors.Wrap(err, "contacts.findByOrderIDs decode")
	}
	return contacts, nil
}
