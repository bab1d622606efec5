package database

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureIndexes(db *mongo.Database, collection string, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("EnsureIndexes: creating %d index(es) on %s", len(models), collection)
	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Printf("EnsureIndexes: %s index error: %v", collection, err)
		return errors.Wrapf(err, "create indexes on %s", collection)
	}
	log.Printf("EnsureIndexes: %s indexes ready %v", collection, names)
	return nil
}

func index(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func EnsureUserOrderIndexes(db *mongo.Database) error {
	return ensureIndexes(db, userOrdersCollection, []mongo.IndexModel{
		index("userId_createdAt", bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}),
	})
}

func EnsureShopOrderIndexes(db *mongo.Database) error {
	return ensureIndexes(db, shopOrdersCollection, []mongo.IndexModel{
		index("userOrderId_index", bson.D{{Key: "userOrderId", Value: 1}}),
		index("userOrderId_itemId", bson.D{{Key: "userOrderId", Value: 1}, {Key: "items._id", Value: 1}}),
		index("itemOwner_createdAt", bson.D{{Key: "items.owner._id", Value: 1}, {Key: "createdAt", Value: -1}}),
		index("paymentMethod_index", bson.D{{Key: "paymentMethod", Value: 1}}),
	})
}

func EnsureContactIndexes(db *mongo.Database) error {
	return ensureIndexes(db, contactsCollection, []mongo.IndexModel{
		index("orderId_index", bson.D{{Key: "orderId", Value: 1}}),
	})
}

func EnsureOutboxIndexes(db *mongo.Database) error {
	return ensureIndexes(db, outboxCollection, []mongo.IndexModel{
		index("status_createdAt", bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}),
	})
}

// EnsureIndexes creates every index the order backend relies on.
func EnsureIndexes(db *mongo.Database) error {
	for _, ensure := range []func(*mongo.Database) error{
		EnsureUserOrderIndexes,
		EnsureShopOrderIndexes,
		EnsureContactIndexes,
		EnsureOutboxIndexes,
	} {
		if err := ensure(db); err != nil {
			return err
		}
	}
	return nil
}
