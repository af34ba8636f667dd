package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description" bson:"description"`
	Price         float64            `json:"price" bson:"price"`
	Image         string             `json:"image" bson:"image"`
	Category      string             `json:"category,omitempty" bson:"category,omitempty"`
	Stock         int                `json:"stock" bson:"stock"`
	Rating        float64            `json:"rating" bson:"rating"` // valeur statique du seed
	AverageRating float64            `json:"averageRating" bson:"averageRating"`
	ReviewCount   int                `json:"reviewCount" bson:"reviewCount"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type ProductRating struct {
	ProductID     primitive.ObjectID `json:"product_id"`
	AverageRating float64            `json:"average_rating"`
	TotalReviews  int                `json:"total_reviews"`
}
