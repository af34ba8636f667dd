package shop

import (
	"context"
	"errors"
	"fmt"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Wishlist struct {
	store   WishlistStore
	catalog *Catalog
}

func NewWishlist(store WishlistStore, catalog *Catalog) *Wishlist {
	return &Wishlist{store: store, catalog: catalog}
}

// Get renvoie les produits de la liste, dans l'ordre d'ajout.
// Les produits supprimés du catalogue sont ignorés.
func (w *Wishlist) Get(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	ids, err := w.ids(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := w.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			products = append(products, *p)
		}
	}
	return products, nil
}

// Add renvoie la liste d'identifiants après ajout.
func (w *Wishlist) Add(ctx context.Context, userID, productID primitive.ObjectID) ([]primitive.ObjectID, error) {
	if _, err := w.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}
	added, err := w.store.AddToWishlist(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("add to wishlist: %w", err)
	}
	ids, err := w.ids(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, conflictError("Product already in wishlist")
	}
	return ids, nil
}

func (w *Wishlist) Remove(ctx context.Context, userID, productID primitive.ObjectID) ([]primitive.ObjectID, error) {
	removed, err := w.store.RemoveFromWishlist(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("remove from wishlist: %w", err)
	}
	if !removed {
		return nil, validationError("Product not in wishlist")
	}
	return w.ids(ctx, userID)
}

func (w *Wishlist) Check(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	ids, err := w.ids(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

func (w *Wishlist) ids(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := w.store.GetWishlist(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return ids, nil
}
