package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

type productRepo struct{ db *DB }

func (r productRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneProduct(p)
	return &clone, nil
}

func (r productRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, quantity int) (bool, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.products[id]
	if !ok {
		return false, nil
	}
	idx := p.Variant(size, color)
	if idx == -1 || p.StockItems[idx].Stock < quantity {
		return false, nil
	}

	items := make([]models.StockItem, 0, len(p.StockItems))
	for i, item := range p.StockItems {
		if i == idx {
			item.Stock -= quantity
		}
		if item.Stock <= 0 {
			continue
		}
		items = append(items, item)
	}
	p.StockItems = items
	r.db.products[id] = p
	return true, nil
}
