package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockItem is one (size, color) variant of a product.
type StockItem struct {
	Size  string `bson:"size" json:"size"`
	Color string `bson:"color" json:"color"`
	Stock int    `bson:"stock" json:"stock"`
}

// ProductOwner is the shop that sells a product.
type ProductOwner struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	DisplayName  string             `bson:"displayName,omitempty" json:"displayName,omitempty"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Price        float64            `bson:"price" json:"price"`
	ShippingCost float64            `bson:"shippingCost" json:"shippingCost"`
	Image        StringList         `bson:"image" json:"image"`
	Owner        ProductOwner       `bson:"owner" json:"owner"`
	StockItems   []StockItem        `bson:"stockItems" json:"stockItems"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Variant returns the index of the stock item matching size and color, or -1.
func (p *Product) Variant(size, color string) int {
	for i, item := range p.StockItems {
		if item.Size == size && item.Color == color {
			return i
		}
	}
	return -1
}

// PrimaryImage returns the first image reference, if any.
func (p *Product) PrimaryImage() string {
	if len(p.Image) == 0 {
		return ""
	}
	return p.Image[0]
}
