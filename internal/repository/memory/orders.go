package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

type userOrderRepo struct{ db *DB }

func (r userOrderRepo) Insert(ctx context.Context, order *models.UserOrder) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.db.userOrders = append(r.db.userOrders, cloneUserOrder(*order))
	return nil
}

func (r userOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserOrder, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, o := range r.db.userOrders {
		if o.ID == id {
			clone := cloneUserOrder(o)
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userOrderRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserOrder, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.UserOrder, 0)
	for _, o := range r.db.userOrders {
		if o.UserID == userID {
			out = append(out, cloneUserOrder(o))
		}
	}
	return newestFirst(out, func(o models.UserOrder) time.Time { return o.CreatedAt }), nil
}

func (r userOrderRepo) ReplaceItems(ctx context.Context, id primitive.ObjectID, items []models.LineItem, updatedAt time.Time) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.userOrders {
		if r.db.userOrders[i].ID == id {
			r.db.userOrders[i].Items = cloneItems(items)
			r.db.userOrders[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

type shopOrderRepo struct{ db *DB }

func (r shopOrderRepo) InsertMany(ctx context.Context, orders []models.ShopOrder) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range orders {
		if orders[i].ID.IsZero() {
			orders[i].ID = primitive.NewObjectID()
		}
		r.db.shopOrders = append(r.db.shopOrders, cloneShopOrder(orders[i]))
	}
	return nil
}

func (r shopOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ShopOrder, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, o := range r.db.shopOrders {
		if o.ID == id {
			clone := cloneShopOrder(o)
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r shopOrderRepo) filter(keep func(models.ShopOrder) bool) []models.ShopOrder {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.ShopOrder, 0)
	for _, o := range r.db.shopOrders {
		if keep(o) {
			out = append(out, cloneShopOrder(o))
		}
	}
	return newestFirst(out, func(o models.ShopOrder) time.Time { return o.CreatedAt })
}

func (r shopOrderRepo) FindByUserOrder(ctx context.Context, userOrderID primitive.ObjectID) ([]models.ShopOrder, error) {
	defer r.db.exclusive(ctx)()
	return r.filter(func(o models.ShopOrder) bool { return o.UserOrderID == userOrderID }), nil
}

func (r shopOrderRepo) FindByUserOrderItem(ctx context.Context, userOrderID, itemID primitive.ObjectID) (*models.ShopOrder, error) {
	defer r.db.exclusive(ctx)()
	found := r.filter(func(o models.ShopOrder) bool {
		return o.UserOrderID == userOrderID && models.ItemIndex(o.Items, itemID) != -1
	})
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r shopOrderRepo) FindAll(ctx context.Context, page, limit int64) ([]models.ShopOrder, int64, error) {
	defer r.db.exclusive(ctx)()
	all := r.filter(func(models.ShopOrder) bool { return true })
	total := int64(len(all))
	if limit <= 0 {
		return all, total, nil
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.ShopOrder{}, total, nil
	}
	end := min(start+limit, total)
	return all[start:end], total, nil
}

func (r shopOrderRepo) FindByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.ShopOrder, error) {
	defer r.db.exclusive(ctx)()
	return r.filter(func(o models.ShopOrder) bool { return o.OwnedBy(shopID) }), nil
}

func (r shopOrderRepo) FindByPaymentMethod(ctx context.Context, method string, shopID *primitive.ObjectID) ([]models.ShopOrder, error) {
	defer r.db.exclusive(ctx)()
	return r.filter(func(o models.ShopOrder) bool {
		if o.PaymentMethod != method {
			return false
		}
		return shopID == nil || o.OwnedBy(*shopID)
	}), nil
}

func (r shopOrderRepo) update(id primitive.ObjectID, apply func(*models.ShopOrder)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.shopOrders {
		if r.db.shopOrders[i].ID == id {
			apply(&r.db.shopOrders[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r shopOrderRepo) UpdateFulfillment(ctx context.Context, id primitive.ObjectID, patch repository.ShopOrderPatch) error {
	defer r.db.exclusive(ctx)()
	return r.update(id, func(o *models.ShopOrder) {
		o.Items = cloneItems(patch.Items)
		o.Status = patch.Status
		if patch.TrackingNumber != "" {
			o.TrackingNumber = patch.TrackingNumber
		}
		if patch.ShippingProvider != "" {
			o.ShippingProvider = patch.ShippingProvider
		}
		o.UpdatedAt = patch.UpdatedAt
	})
}

func (r shopOrderRepo) SetPaymentProof(ctx context.Context, userOrderID primitive.ObjectID, url string, at time.Time) (int64, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for i := range r.db.shopOrders {
		if r.db.shopOrders[i].UserOrderID != userOrderID {
			continue
		}
		stamp := at
		r.db.shopOrders[i].PaymentProof = url
		r.db.shopOrders[i].PaymentProofAt = &stamp
		r.db.shopOrders[i].UpdatedAt = at
		n++
	}
	return n, nil
}

func (r shopOrderRepo) SetTransferred(ctx context.Context, id primitive.ObjectID, transferred bool, at time.Time) error {
	defer r.db.exclusive(ctx)()
	return r.update(id, func(o *models.ShopOrder) {
		o.TransferredToShop = transferred
		o.UpdatedAt = at
	})
}

func (r shopOrderRepo) DeleteOwned(ctx context.Context, id, shopID primitive.ObjectID) (bool, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i, o := range r.db.shopOrders {
		if o.ID == id && o.OwnedBy(shopID) {
			r.db.shopOrders = append(r.db.shopOrders[:i:i], r.db.shopOrders[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
