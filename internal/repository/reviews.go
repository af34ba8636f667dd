package repository

import (
	"context"
	"fmt"

	"fertilizer_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Reviews struct {
	collection *mongo.Collection
}

func NewReviews(db *mongo.Database) *Reviews {
	return &Reviews{collection: db.Collection("reviews")}
}

// Insert renvoie ErrDuplicate si l'utilisateur a déjà noté ce produit.
func (r *Reviews) Insert(ctx context.Context, review *models.Review) error {
	ts := now()
	review.CreatedAt, review.UpdatedAt = ts, ts
	if review.Images == nil {
		review.Images = []string{}
	}
	if review.Likes == nil {
		review.Likes = []primitive.ObjectID{}
	}

	res, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", duplicate(err))
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		review.ID = id
	}
	return nil
}

func (r *Reviews) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Reviews) FindByUserAndProduct(ctx context.Context, userID, productID primitive.ObjectID) (*models.Review, error) {
	return r.findOne(ctx, bson.M{"user": userID, "product": productID})
}

// ListByProduct renvoie une page d'avis, les plus récents d'abord, et le total.
func (r *Reviews) ListByProduct(ctx context.Context, productID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error) {
	filter := bson.M{"product": productID}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find reviews: %w", err)
	}
	reviews := []models.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reviews: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *Reviews) Update(ctx context.Context, id primitive.ObjectID, update models.ReviewUpdate) (*models.Review, error) {
	set := bson.M{
		"verifiedPurchase": update.VerifiedPurchase,
		"updatedAt":        now(),
	}
	if update.Rating != nil {
		set["rating"] = *update.Rating
	}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Comment != nil {
		set["comment"] = *update.Comment
	}
	if update.Images != nil {
		set["images"] = update.Images
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var review models.Review
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&review); err != nil {
		return nil, notFound(err)
	}
	return &review, nil
}

func (r *Reviews) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike retire userID des likes s'il y figure, l'ajoute sinon, en une
// seule mise à jour par pipeline.
func (r *Reviews) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Review, error) {
	likes := bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"likes": bson.M{"$cond": bson.M{
				"if": bson.M{"$in": bson.A{userID, likes}},
				"then": bson.M{"$filter": bson.M{
					"input": likes,
					"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
				}},
				"else": bson.M{"$concatArrays": bson.A{likes, bson.A{userID}}},
			}},
			"updatedAt": now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review models.Review
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&review); err != nil {
		return nil, notFound(err)
	}
	return &review, nil
}

// RatingStats calcule la moyenne et le nombre d'avis d'un produit.
func (r *Reviews) RatingStats(ctx context.Context, productID primitive.ObjectID) (models.ProductRating, error) {
	stats := models.ProductRating{ProductID: productID}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$product",
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats, fmt.Errorf("failed to decode ratings: %w", err)
	}
	if len(rows) > 0 {
		stats.AverageRating = rows[0].Avg
		stats.TotalReviews = rows[0].Count
	}
	return stats, nil
}

func (r *Reviews) CreateIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *Reviews) findOne(ctx context.Context, filter bson.M) (*models.Review, error) {
	var review models.Review
	if err := r.collection.FindOne(ctx, filter).Decode(&review); err != nil {
		return nil, notFound(err)
	}
	return &review, nil
}
