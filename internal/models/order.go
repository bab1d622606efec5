package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentCOD    = "COD"
	PaymentQRCode = "QR Code"
)

// Address is the delivery address snapshot stored with an order.
type Address struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email,omitempty" json:"email,omitempty"`
	Street    string `bson:"street" json:"street"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state,omitempty" json:"state,omitempty"`
	Zipcode   string `bson:"zipcode,omitempty" json:"zipcode,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"`
	Phone     string `bson:"phone" json:"phone"`
}

// LineItem is one purchased variant. The same ID is used by the buyer's copy
// and the shop's copy of the item.
type LineItem struct {
	ID                  primitive.ObjectID `bson:"_id" json:"_id"`
	ProductID           primitive.ObjectID `bson:"productId" json:"productId"`
	Name                string             `bson:"name" json:"name"`
	Price               float64            `bson:"price" json:"price"`
	Image               string             `bson:"image,omitempty" json:"image,omitempty"`
	Owner               ProductOwner       `bson:"owner" json:"owner"`
	Quantity            int                `bson:"quantity" json:"quantity"`
	Size                string             `bson:"size" json:"size"`
	Color               string             `bson:"color" json:"color"`
	ShippingCost        float64            `bson:"shippingCost" json:"shippingCost"`
	Address             Address            `bson:"address" json:"address"`
	Status              Status             `bson:"status" json:"status"`
	ConfirmedByCustomer bool               `bson:"confirmedByCustomer" json:"confirmedByCustomer"`
	TrackingNumber      string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	ShippingProvider    string             `bson:"shippingProvider,omitempty" json:"shippingProvider,omitempty"`
	UpdatedAt           *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Subtotal is the item price plus its shipping cost.
func (i LineItem) Subtotal() float64 {
	return i.Price*float64(i.Quantity) + i.ShippingCost
}

// UserOrder is the buyer's record of one checkout.
type UserOrder struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Items          []LineItem         `bson:"items" json:"items"`
	Amount         float64            `bson:"amount" json:"amount"`
	DeclaredAmount float64            `bson:"declaredAmount,omitempty" json:"declaredAmount,omitempty"`
	Currency       string             `bson:"currency" json:"currency"`
	Address        Address            `bson:"address" json:"address"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ShopOrder is the part of a UserOrder that one shop has to fulfil.
type ShopOrder struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ShopID            primitive.ObjectID `bson:"shopId" json:"shopId"`
	BuyerID           primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	UserOrderID       primitive.ObjectID `bson:"userOrderId" json:"userOrderId"`
	Items             []LineItem         `bson:"items" json:"items"`
	Address           Address            `bson:"address" json:"address"`
	Amount            float64            `bson:"amount" json:"amount"`
	PaymentMethod     string             `bson:"paymentMethod" json:"paymentMethod"`
	Payment           bool               `bson:"payment" json:"payment"`
	PaymentProof      string             `bson:"paymentProof,omitempty" json:"paymentProof,omitempty"`
	PaymentProofAt    *time.Time         `bson:"paymentProofAt,omitempty" json:"paymentProofAt,omitempty"`
	Status            Status             `bson:"status" json:"status"`
	TrackingNumber    string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	ShippingProvider  string             `bson:"shippingProvider,omitempty" json:"shippingProvider,omitempty"`
	TransferredToShop bool               `bson:"transferredToShop" json:"transferredToShop"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ItemIndex returns the position of the line item with id, or -1.
func ItemIndex(items []LineItem, id primitive.ObjectID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// OwnedBy reports whether any item of the order belongs to shopID.
func (o *ShopOrder) OwnedBy(shopID primitive.ObjectID) bool {
	for _, item := range o.Items {
		if item.Owner.ID == shopID {
			return true
		}
	}
	return false
}
