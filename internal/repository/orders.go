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

// Orders ne garde aucune référence inverse sur l'utilisateur : les commandes
// d'un client se retrouvent par l'index sur user.
type Orders struct {
	collection *mongo.Collection
}

func NewOrders(db *mongo.Database) *Orders {
	return &Orders{collection: db.Collection("orders")}
}

func (o *Orders) Insert(ctx context.Context, order *models.Order) error {
	ts := now()
	order.CreatedAt, order.UpdatedAt = ts, ts

	res, err := o.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (o *Orders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := o.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// ListByUser renvoie les commandes les plus récentes d'abord.
func (o *Orders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := o.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus ne change le statut que s'il vaut encore from.
// ErrNotFound couvre aussi le cas où le statut a changé entre-temps.
func (o *Orders) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) (*models.Order, error) {
	filter := bson.M{"_id": id, "orderStatus": from}
	update := bson.M{"$set": bson.M{"orderStatus": to, "updatedAt": now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := o.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (o *Orders) ExistsWithProduct(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	filter := bson.M{"user": userID, "items.product": productID}
	n, err := o.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return n > 0, nil
}

func (o *Orders) CreateIndexes(ctx context.Context) error {
	_, err := o.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "items.product", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
