package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	UserID           primitive.ObjectID   `json:"-" bson:"user"`
	Author           *Author              `json:"-" bson:"-"`
	ProductID        primitive.ObjectID   `json:"product" bson:"product"`
	Rating           int                  `json:"rating" bson:"rating"`
	Title            string               `json:"title" bson:"title"`
	Comment          string               `json:"comment" bson:"comment"`
	Images           []string             `json:"images" bson:"images"`
	Likes            []primitive.ObjectID `json:"likes" bson:"likes"`
	VerifiedPurchase bool                 `json:"verifiedPurchase" bson:"verifiedPurchase"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// MarshalJSON expose "user" comme profil joint quand il est chargé,
// sinon comme simple identifiant.
func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	var user any = r.UserID
	if r.Author != nil {
		user = r.Author
	}
	return json.Marshal(struct {
		alias
		User any `json:"user"`
	}{alias(r), user})
}

// ReviewUpdate décrit une mise à jour partielle. Un champ nil reste inchangé,
// Images nil conserve les images existantes.
type ReviewUpdate struct {
	Rating           *int
	Title            *string
	Comment          *string
	Images           []string
	VerifiedPurchase bool
}

// ReviewPage est une page d'avis pour un produit.
type ReviewPage struct {
	Reviews []Review
	Total   int64
	Page    int
	Pages   int
}
