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

// Les hash de mot de passe ne sortent que par FindByEmail.
var withoutPassword = bson.M{"password": 0}

type Users struct {
	collection *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{collection: db.Collection("users")}
}

func (u *Users) Create(ctx context.Context, user *models.User) error {
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts
	if user.Cart == nil {
		user.Cart = []models.CartItem{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []primitive.ObjectID{}
	}

	res, err := u.collection.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", duplicate(err))
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (u *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := u.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (u *Users) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	opts := options.Find().SetProjection(withoutPassword)
	cur, err := u.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateProfile ne modifie que les champs renseignés.
func (u *Users) UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": now()}
	if update.Username != "" {
		set["username"] = update.Username
	}
	if update.Phone != "" {
		set["phone"] = update.Phone
	}
	if update.Avatar != "" {
		set["avatar"] = update.Avatar
	}
	if update.Address != nil {
		set["address"] = update.Address
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var user models.User
	if err := u.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SetPassword remplace le hash stocké.
func (u *Users) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return u.updateUser(ctx, id, bson.M{"$set": bson.M{"password": hash, "updatedAt": now()}}, "failed to update password")
}

// --- Panier ---

func (u *Users) GetCart(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	var doc struct {
		Cart []models.CartItem `bson:"cart"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	if err := u.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	if doc.Cart == nil {
		doc.Cart = []models.CartItem{}
	}
	return doc.Cart, nil
}

// IncrementCartItem renvoie false si le panier n'a pas de ligne pour productID.
func (u *Users) IncrementCartItem(ctx context.Context, userID, productID primitive.ObjectID, delta int) (bool, error) {
	filter := bson.M{"_id": userID, "cart.product": productID}
	update := bson.M{
		"$inc": bson.M{"cart.$[line].quantity": delta},
		"$set": bson.M{"updatedAt": now()},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"line.product": productID}},
	})

	res, err := u.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("failed to increment cart item: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// PushCartItem n'ajoute la ligne que si aucune ligne n'existe pour ce produit.
func (u *Users) PushCartItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) (bool, error) {
	filter := bson.M{"_id": userID, "cart.product": bson.M{"$ne": item.Product}}
	update := bson.M{
		"$push": bson.M{"cart": item},
		"$set":  bson.M{"updatedAt": now()},
	}

	res, err := u.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to push cart item: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (u *Users) SetCartItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (bool, error) {
	filter := bson.M{"_id": userID, "cart.product": productID}
	update := bson.M{
		"$set": bson.M{
			"cart.$[line].quantity": quantity,
			"updatedAt":             now(),
		},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"line.product": productID}},
	})

	res, err := u.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (u *Users) PullCartItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"cart": bson.M{"product": productID}},
		"$set":  bson.M{"updatedAt": now()},
	}
	return u.updateUser(ctx, userID, update, "failed to remove cart item")
}

func (u *Users) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"cart": []models.CartItem{}, "updatedAt": now()}}
	return u.updateUser(ctx, userID, update, "failed to clear cart")
}

// --- Liste de souhaits ---

func (u *Users) GetWishlist(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var doc struct {
		Wishlist []primitive.ObjectID `bson:"wishlist"`
	}
	opts := options.FindOne().SetProjection(bson.M{"wishlist": 1})
	if err := u.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	if doc.Wishlist == nil {
		doc.Wishlist = []primitive.ObjectID{}
	}
	return doc.Wishlist, nil
}

// AddToWishlist renvoie false si le produit y est déjà (ou si l'utilisateur n'existe pas).
func (u *Users) AddToWishlist(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": userID, "wishlist": bson.M{"$ne": productID}}
	update := bson.M{
		"$push": bson.M{"wishlist": productID},
		"$set":  bson.M{"updatedAt": now()},
	}
	res, err := u.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (u *Users) RemoveFromWishlist(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": userID, "wishlist": productID}
	update := bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updatedAt": now()},
	}
	res, err := u.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (u *Users) CreateIndexes(ctx context.Context) error {
	_, err := u.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (u *Users) updateUser(ctx context.Context, userID primitive.ObjectID, update bson.M, msg string) error {
	res, err := u.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
