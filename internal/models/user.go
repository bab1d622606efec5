package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the subset of the account document the order service reads.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	DisplayName  string             `bson:"displayName,omitempty" json:"displayName,omitempty"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	CartData     map[string]any     `bson:"cartData" json:"-"`
}

// BuyerInfo is the public view of a user attached to shop order listings.
type BuyerInfo struct {
	ID           primitive.ObjectID `json:"_id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	DisplayName  string             `json:"displayName,omitempty"`
	ProfileImage string             `json:"profileImage,omitempty"`
}

func (u User) BuyerInfo() BuyerInfo {
	return BuyerInfo{ID: u.ID, Name: u.Name, Email: u.Email, DisplayName: u.DisplayName, ProfileImage: u.ProfileImage}
}
