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
	"marketplace/internal/repository"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

type UserOrderRepository struct {
	coll *mongo.Collection
}

func (r *UserOrderRepository) Insert(ctx context.Context, order *models.UserOrder) error {
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return errors.Wrap(err, "userOrders.insert")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (r *UserOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserOrder, error) {
	var order models.UserOrder
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "userOrders.findByID")
	}
	return &order, nil
}

func (r *UserOrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserOrder, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, errors.Wrap(err, "userOrders.findByUser")
	}
	defer cursor.Close(ctx)

	orders := make([]models.UserOrder, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, "userOrders.findByUser decode")
	}
	return orders, nil
}

func (r *UserOrderRepository) ReplaceItems(ctx context.Context, id primitive.ObjectID, items []models.LineItem, updatedAt time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"items":     items,
		"updatedAt": updatedAt,
	}})
	if err != nil {
		return errors.Wrap(err, "userOrders.replaceItems")
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type ShopOrderRepository struct {
	coll *mongo.Collection
}

func (r *ShopOrderRepository) InsertMany(ctx context.Context, orders []models.ShopOrder) error {
	if len(orders) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(orders))
	for i := range orders {
		if orders[i].ID.IsZero() {
			orders[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, orders[i])
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return errors.Wrap(err, "shopOrders.insertMany")
}

func (r *ShopOrderRepository) findOne(ctx context.Context, filter bson.M, op string) (*models.ShopOrder, error) {
	var order models.ShopOrder
	err := r.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	return &order, nil
}

func (r *ShopOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions, op string) ([]models.ShopOrder, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer cursor.Close(ctx)

	orders := make([]models.ShopOrder, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, op+" decode")
	}
	return orders, nil
}

func (r *ShopOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ShopOrder, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "shopOrders.findByID")
}

func (r *ShopOrderRepository) FindByUserOrder(ctx context.Context, userOrderID primitive.ObjectID) ([]models.ShopOrder, error) {
	return r.find(ctx, bson.M{"userOrderId": userOrderID}, options.Find().SetSort(newestFirst), "shopOrders.findByUserOrder")
}

func (r *ShopOrderRepository) FindByUserOrderItem(ctx context.Context, userOrderID, itemID primitive.ObjectID) (*models.ShopOrder, error) {
	return r.findOne(ctx, bson.M{
		"userOrderId": userOrderID,
		"items._id":   itemID,
	}, "shopOrders.findByUserOrderItem")
}

func (r *ShopOrderRepository) FindAll(ctx context.Context, page, limit int64) ([]models.ShopOrder, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "shopOrders.count")
	}

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}
	orders, err := r.find(ctx, bson.M{}, opts, "shopOrders.findAll")
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *ShopOrderRepository) FindByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.ShopOrder, error) {
	return r.find(ctx, bson.M{"items.owner._id": shopID}, options.Find().SetSort(newestFirst), "shopOrders.findByShop")
}

func (r *ShopOrderRepository) FindByPaymentMethod(ctx context.Context, method string, shopID *primitive.ObjectID) ([]models.ShopOrder, error) {
	filter := bson.M{"paymentMethod": method}
	if shopID != nil {
		filter["items.owner._id"] = *shopID
	}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst), "shopOrders.findByPaymentMethod")
}

func (r *ShopOrderRepository) UpdateFulfillment(ctx context.Context, id primitive.ObjectID, patch repository.ShopOrderPatch) error {
	set := bson.M{
		"items":     patch.Items,
		"status":    patch.Status,
		"updatedAt": patch.UpdatedAt,
	}
	if patch.TrackingNumber != "" {
		set["trackingNumber"] = patch.TrackingNumber
	}
	if patch.ShippingProvider != "" {
		set["shippingProvider"] = patch.ShippingProvider
	}

	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "shopOrders.updateFulfillment")
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ShopOrderRepository) SetPaymentProof(ctx context.Context, userOrderID primitive.ObjectID, url string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"userOrderId": userOrderID}, bson.M{"$set": bson.M{
		"paymentProof":   url,
		"paymentProofAt": at,
		"updatedAt":      at,
	}})
	if err != nil {
		return 0, errors.Wrap(err, "shopOrders.setPaymentProof")
	}
	return res.MatchedCount, nil
}

func (r *ShopOrderRepository) SetTransferred(ctx context.Context, id primitive.ObjectID, transferred bool, at time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"transferredToShop": transferred,
		"updatedAt":         at,
	}})
	if err != nil {
		return errors.Wrap(err, "shopOrders.setTransferred")
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ShopOrderRepository) DeleteOwned(ctx context.Context, id, shopID primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{
		"_id":             id,
		"items.owner._id": shopID,
	})
	if err != nil {
		return false, errors.Wrap(err, "shopOrders.deleteOwned")
	}
	return res.DeletedCount > 0, nil
}
