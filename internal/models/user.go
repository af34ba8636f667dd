package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Username  string               `json:"username" bson:"username"`
	Email     string               `json:"email" bson:"email"`
	Password  string               `json:"-" bson:"password"`
	Phone     string               `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   *Address             `json:"address,omitempty" bson:"address,omitempty"`
	Avatar    string               `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Cart      []CartItem           `json:"cart" bson:"cart"`
	Wishlist  []primitive.ObjectID `json:"wishlist" bson:"wishlist"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// CartItem est une ligne du panier embarquée dans le document utilisateur.
type CartItem struct {
	Product  primitive.ObjectID `json:"product" bson:"product"`
	Quantity int                `json:"quantity" bson:"quantity"`
}

// CartLine est une ligne de panier jointe au catalogue.
// Product vaut nil si le produit n'existe plus.
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}

// ProfileUpdate ne contient que les champs modifiables par l'utilisateur.
type ProfileUpdate struct {
	Username string
	Phone    string
	Address  *Address
	Avatar   string
}

// Author est le profil minimal joint aux avis.
type Author struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Avatar string             `json:"avatar,omitempty"`
}
