package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxEvent is an event stored in the same transaction as the state change
// that produced it, waiting to be relayed to the broker.
type OutboxEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventType   string             `bson:"eventType" json:"eventType"`
	Topic       string             `bson:"topic" json:"topic"`
	AggregateID string             `bson:"aggregateId" json:"aggregateId"`
	Payload     []byte             `bson:"payload" json:"payload"`
	Status      string             `bson:"status" json:"status"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	LastError   string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	SentAt      *time.Time         `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}
