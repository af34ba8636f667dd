package repository

import (
	"context"
	"fmt"
	"regexp"

	"fertilizer_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const searchLimit = 50

type Products struct {
	collection *mongo.Collection
}

func NewProducts(db *mongo.Database) *Products {
	return &Products{collection: db.Collection("products")}
}

func (p *Products) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := p.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (p *Products) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return p.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// List renvoie le catalogue, filtré par catégorie (insensible à la casse) si fournie.
func (p *Products) List(ctx context.Context, category string) ([]models.Product, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return p.find(ctx, filter, opts)
}

// SearchText cherche query dans le nom, la description et la catégorie.
// Utilisé quand Elasticsearch n'est pas disponible.
func (p *Products) SearchText(ctx context.Context, query string) ([]models.Product, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"description": re},
		bson.M{"category": re},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(searchLimit)
	return p.find(ctx, filter, opts)
}

func (p *Products) UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, count int) (*models.Product, error) {
	update := bson.M{"$set": bson.M{
		"averageRating": average,
		"reviewCount":   count,
		"updatedAt":     now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	if err := p.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&product); err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// InsertMany sert au chargement du catalogue initial.
func (p *Products) InsertMany(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ts := now()
	docs := make([]interface{}, 0, len(products))
	for i := range products {
		products[i].CreatedAt, products[i].UpdatedAt = ts, ts
		docs = append(docs, products[i])
	}
	res, err := p.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}
	for i, id := range res.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok && i < len(products) {
			products[i].ID = oid
		}
	}
	return nil
}

func (p *Products) Count(ctx context.Context) (int64, error) {
	n, err := p.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (p *Products) DeleteAll(ctx context.Context) error {
	if _, err := p.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func (p *Products) CreateIndexes(ctx context.Context) error {
	_, err := p.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (p *Products) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cur, err := p.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
