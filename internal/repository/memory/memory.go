// Package memory keeps every repository in process memory. It backs
// DB_DRIVER=memory for local runs and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// DB holds all collections. Every repository call outside a transaction
// waits for the running transaction, so a rollback to the snapshot taken at
// its start never discards another caller's write.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	products   map[primitive.ObjectID]models.Product
	users      map[primitive.ObjectID]models.User
	userOrders []models.UserOrder
	shopOrders []models.ShopOrder
	contacts   []models.ContactRequest
	outbox     []models.OutboxEvent
}

func New() *DB {
	return &DB{
		products: map[primitive.ObjectID]models.Product{},
		users:    map[primitive.ObjectID]models.User{},
	}
}

// Store exposes the DB through the repository ports.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Tx:         db,
		Products:   productRepo{db},
		Users:      userRepo{db},
		UserOrders: userOrderRepo{db},
		ShopOrders: shopOrderRepo{db},
		Contacts:   contactRepo{db},
		Outbox:     outboxRepo{db},
	}
}

type snapshot struct {
	products   map[primitive.ObjectID]models.Product
	users      map[primitive.ObjectID]models.User
	userOrders []models.UserOrder
	shopOrders []models.ShopOrder
	contacts   []models.ContactRequest
	outbox     []models.OutboxEvent
}

type txKey struct{}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// exclusive takes the transaction lock unless ctx already runs inside one of
// db's transactions. The returned func releases it.
func (db *DB) exclusive(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.txMu.Lock()
	return db.txMu.Unlock
}

// WithTransaction runs fn alone against db. A nested call joins the outer
// transaction.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, db)

	db.mu.RLock()
	snap := db.snapshot()
	db.mu.RUnlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.restore(snap)
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		products:   make(map[primitive.ObjectID]models.Product, len(db.products)),
		users:      make(map[primitive.ObjectID]models.User, len(db.users)),
		userOrders: make([]models.UserOrder, 0, len(db.userOrders)),
		shopOrders: make([]models.ShopOrder, 0, len(db.shopOrders)),
		contacts:   append([]models.ContactRequest(nil), db.contacts...),
		outbox:     append([]models.OutboxEvent(nil), db.outbox...),
	}
	for id, p := range db.products {
		s.products[id] = cloneProduct(p)
	}
	for id, u := range db.users {
		s.users[id] = u
	}
	for _, o := range db.userOrders {
		s.userOrders = append(s.userOrders, cloneUserOrder(o))
	}
	for _, o := range db.shopOrders {
		s.shopOrders = append(s.shopOrders, cloneShopOrder(o))
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.products = s.products
	db.users = s.users
	db.userOrders = s.userOrders
	db.shopOrders = s.shopOrders
	db.contacts = s.contacts
	db.outbox = s.outbox
}

// PutProduct stores p, assigning an id when it has none.
func (db *DB) PutProduct(p models.Product) primitive.ObjectID {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	db.products[p.ID] = cloneProduct(p)
	return p.ID
}

// Product returns a copy of the stored product.
func (db *DB) Product(id primitive.ObjectID) (models.Product, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.products[id]
	return cloneProduct(p), ok
}

// PutUser stores u, assigning an id when it has none.
func (db *DB) PutUser(u models.User) primitive.ObjectID {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	db.users[u.ID] = u
	return u.ID
}

// User returns the stored user.
func (db *DB) User(id primitive.ObjectID) (models.User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	return u, ok
}

// Outbox returns a copy of every stored outbox event.
func (db *DB) Outbox() []models.OutboxEvent {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]models.OutboxEvent(nil), db.outbox...)
}

// ShopOrderCount returns the number of stored shop orders.
func (db *DB) ShopOrderCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.shopOrders)
}

func cloneProduct(p models.Product) models.Product {
	p.StockItems = append([]models.StockItem(nil), p.StockItems...)
	p.Image = append(models.StringList(nil), p.Image...)
	return p
}

func cloneItems(items []models.LineItem) []models.LineItem {
	return append([]models.LineItem(nil), items...)
}

func cloneUserOrder(o models.UserOrder) models.UserOrder {
	o.Items = cloneItems(o.Items)
	return o
}

func cloneShopOrder(o models.ShopOrder) models.ShopOrder {
	o.Items = cloneItems(o.Items)
	return o
}

func newestFirst[T any](in []T, createdAt func(T) time.Time) []T {
	out := make([]T, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, in[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	return out
}
