// Package events defines the order events written to the outbox and relays
// them to Kafka.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"marketplace/internal/models"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentProofAdded  = "PaymentProofSubmitted"
	EventContactRequested   = "ContactRequested"
)

const (
	TopicOrderPlaced   = "order.placed"
	TopicOrderStatus   = "order.status"
	TopicOrderPayment  = "order.payment"
	TopicOrderContacts = "order.contact"
)

// Producer names this service in every envelope.
const Producer = "order-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ShopOrderRef struct {
	ShopOrderID string  `json:"shop_order_id"`
	ShopID      string  `json:"shop_id"`
	Amount      float64 `json:"amount"`
	ItemCount   int     `json:"item_count"`
}

type OrderPlacedPayload struct {
	OrderID       string         `json:"order_id"`
	UserID        string         `json:"user_id"`
	Amount        float64        `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentMethod string         `json:"payment_method"`
	ShopOrders    []ShopOrderRef `json:"shop_orders"`
}

type OrderStatusChangedPayload struct {
	OrderID          string `json:"order_id"`
	ShopOrderID      string `json:"shop_order_id,omitempty"`
	ItemID           string `json:"item_id"`
	From             string `json:"from"`
	To               string `json:"to"`
	TrackingNumber   string `json:"tracking_number,omitempty"`
	ShippingProvider string `json:"shipping_provider,omitempty"`
}

type PaymentProofPayload struct {
	OrderID string `json:"order_id"`
	URL     string `json:"url"`
}

type ContactRequestedPayload struct {
	ContactID string `json:"contact_id"`
	OrderID   string `json:"order_id"`
	ShopID    string `json:"shop_id"`
	UserID    string `json:"user_id"`
}

// NewOutboxEvent wraps payload in an Envelope and returns it as a pending
// outbox row keyed by aggregateID.
func NewOutboxEvent(eventType, topic, aggregateID string, payload any, now time.Time) (*models.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", eventType)
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		Producer:      Producer,
		CorrelationID: aggregateID,
		Payload:       raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s envelope", eventType)
	}

	return &models.OutboxEvent{
		EventType:   eventType,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     body,
		Status:      models.OutboxPending,
		CreatedAt:   now,
	}, nil
}

// UnwrapPayload decodes the payload of an envelope into T.
func UnwrapPayload[T any](body []byte) (Envelope, T, error) {
	var (
		env Envelope
		t   T
	)
	if err := json.Unmarshal(body, &env); err != nil {
		return env, t, errors.Wrap(err, "decode envelope")
	}
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return env, t, errors.Wrap(err, "decode payload")
	}
	return env, t, nil
}
