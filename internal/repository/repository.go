// Package repository defines the persistence ports used by the order service.
package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no document.
var ErrNotFound = errors.New("document not found")

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)

	// DecrementStock subtracts quantity from the (size, color) variant only if
	// the variant holds at least quantity, then drops variants left at or
	// below zero. It reports false when the condition did not hold.
	DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, quantity int) (bool, error)
}

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	ClearCart(ctx context.Context, id primitive.ObjectID) error
}

type UserOrderRepository interface {
	Insert(ctx context.Context, order *models.UserOrder) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserOrder, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserOrder, error)
	ReplaceItems(ctx context.Context, id primitive.ObjectID, items []models.LineItem, updatedAt time.Time) error
}

// ShopOrderPatch is the set of fulfillment fields the synchronizer rewrites.
type ShopOrderPatch struct {
	Items            []models.LineItem
	Status           models.Status
	TrackingNumber   string
	ShippingProvider string
	UpdatedAt        time.Time
}

type ShopOrderRepository interface {
	InsertMany(ctx context.Context, orders []models.ShopOrder) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ShopOrder, error)
	FindByUserOrder(ctx context.Context, userOrderID primitive.ObjectID) ([]models.ShopOrder, error)
	FindByUserOrderItem(ctx context.Context, userOrderID, itemID primitive.ObjectID) (*models.ShopOrder, error)
	FindAll(ctx context.Context, page, limit int64) ([]models.ShopOrder, int64, error)
	FindByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.ShopOrder, error)
	FindByPaymentMethod(ctx context.Context, method string, shopID *primitive.ObjectID) ([]models.ShopOrder, error)
	UpdateFulfillment(ctx context.Context, id primitive.ObjectID, patch ShopOrderPatch) error
	SetPaymentProof(ctx context.Context, userOrderID primitive.ObjectID, url string, at time.Time) (int64, error)
	SetTransferred(ctx context.Context, id primitive.ObjectID, transferred bool, at time.Time) error

	// DeleteOwned removes the order only if one of its items belongs to shopID.
	DeleteOwned(ctx context.Context, id, shopID primitive.ObjectID) (bool, error)
}

type ContactRepository interface {
	Insert(ctx context.Context, req *models.ContactRequest) error
	FindByOrderIDs(ctx context.Context, orderIDs []primitive.ObjectID) ([]models.ContactRequest, error)
}

type OutboxRepository interface {
	Append(ctx context.Context, event *models.OutboxEvent) error
	FetchPending(ctx context.Context, limit int64) ([]models.OutboxEvent, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkAttempt(ctx context.Context, id primitive.ObjectID, lastError string, failed bool) error
}

// Store bundles every repository behind one backend.
type Store struct {
	Tx         Transactor
	Products   ProductRepository
	Users      UserRepository
	UserOrders UserOrderRepository
	ShopOrders ShopOrderRepository
	Contacts   ContactRepository
	Outbox     OutboxRepository
}
