package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
)

type userRepo struct{ db *DB }

func (r userRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := r.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r userRepo) ClearCart(ctx context.Context, id primitive.ObjectID) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil
	}
	u.CartData = map[string]any{}
	r.db.users[id] = u
	return nil
}
