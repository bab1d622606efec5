package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ContactStatusPending = "pending"

// ContactRequest is a buyer's support thread opened with a shop about an order item.
type ContactRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	ShopID      primitive.ObjectID `bson:"shopId" json:"shopId"`
	OrderID     primitive.ObjectID `bson:"orderId" json:"orderId"`
	ProductID   primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	Description string             `bson:"description" json:"description"`
	Phone       string             `bson:"phone" json:"phone"`
	Images      []string           `bson:"images" json:"images"`
	Video       string             `bson:"video,omitempty" json:"video,omitempty"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
