package database

import (
	"go.mongodb.org/mongo-driver/mongo"

	"marketplace/internal/repository"
)

// NewStore wires the MongoDB repositories for db.
func NewStore(db *mongo.Database) repository.Store {
	return repository.Store{
		Tx:         NewTransactor(db.Client()),
		Products:   &ProductRepository{coll: db.Collection(productsCollection)},
		Users:      &UserRepository{coll: db.Collection(usersCollection)},
		UserOrders: &UserOrderRepository{coll: db.Collection(userOrdersCollection)},
		ShopOrders: &ShopOrderRepository{coll: db.Collection(shopOrdersCollection)},
		Contacts:   &ContactRepository{coll: db.Collection(contactsCollection)},
		Outbox:     &OutboxRepository{coll: db.Collection(outboxCollection)},
	}
}
