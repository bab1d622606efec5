package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

type ProductRepository struct {
	coll *mongo.Collection
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "products.findByID")
	}
	return &product, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, quantity int) (bool, error) {
	filter := bson.M{
		"_id": id,
		"stockItems": bson.M{"$elemMatch": bson.M{
			"size":  size,
			"color": color,
			"stock": bson.M{"$gte": quantity},
		}},
	}
	update := bson.M{"$inc": bson.M{"stockItems.$.stock": -quantity}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.Wrap(err, "products.decrementStock")
	}
	if res.MatchedCount == 0 {
		return false, nil
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"stockItems": bson.M{"stock": bson.M{"$lte": 0}}}},
	)
	if err != nil {
		return false, errors.Wrap(err, "products.pullEmptyVariants")
	}
	return true, nil
}
