package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
)

type contactRepo struct{ db *DB }

func (r contactRepo) Insert(ctx context.Context, req *models.ContactRequest) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	stored := *req
	stored.Images = append([]string(nil), req.Images...)
	r.db.contacts = append(r.db.contacts, stored)
	return nil
}

func (r contactRepo) FindByOrderIDs(ctx context.Context, orderIDs []primitive.ObjectID) ([]models.ContactRequest, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	wanted := make(map[primitive.ObjectID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	out := make([]models.ContactRequest, 0)
	for _, c := range r.db.contacts {
		if wanted[c.OrderID] {
			out = append(out, c)
		}
	}
	return newestFirst(out, func(c models.ContactRequest) time.Time { return c.CreatedAt }), nil
}

type outboxRepo struct{ db *DB }

func (r outboxRepo) Append(ctx context.Context, event *models.OutboxEvent) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	r.db.outbox = append(r.db.outbox, *event)
	return nil
}

func (r outboxRepo) FetchPending(ctx context.Context, limit int64) ([]models.OutboxEvent, error) {
	defer r.db.exclusive(ctx)()
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.OutboxEvent, 0)
	for _, e := range r.db.outbox {
		if e.Status != models.OutboxPending {
			continue
		}
		out = append(out, e)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r outboxRepo) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			stamp := at
			r.db.outbox[i].Status = models.OutboxSent
			r.db.outbox[i].SentAt = &stamp
			return nil
		}
	}
	return nil
}

func (r outboxRepo) MarkAttempt(ctx context.Context, id primitive.ObjectID, lastError string, failed bool) error {
	defer r.db.exclusive(ctx)()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			r.db.outbox[i].Attempts++
			r.db.outbox[i].LastError = lastError
			if failed {
				r.db.outbox[i].Status = models.OutboxFailed
			}
			return nil
		}
	}
	return nil
}
