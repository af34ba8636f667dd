package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// addAttempts borne la course entre $inc et $push conditionnels.
	addAttempts = 3
	// notifyTimeout borne la publication du badge, faite dans la requête.
	notifyTimeout = 2 * time.Second
)

type Cart struct {
	carts    CartStore
	catalog  *Catalog
	notifier CartNotifier
}

func NewCart(carts CartStore, catalog *Catalog, notifier CartNotifier) *Cart {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Cart{carts: carts, catalog: catalog, notifier: notifier}
}

// Get renvoie le panier joint au catalogue. Une ligne dont le produit a
// disparu garde un produit nil.
func (c *Cart) Get(ctx context.Context, userID primitive.ObjectID) ([]models.CartLine, error) {
	items, err := c.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Product)
	}
	products, err := c.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.CartLine{Product: products[item.Product], Quantity: item.Quantity})
	}
	return lines, nil
}

// Add ajoute quantity à la ligne existante ou crée la ligne.
func (c *Cart) Add(ctx context.Context, userID, productID primitive.ObjectID, quantity int) ([]models.CartLine, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if _, err := c.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < addAttempts; attempt++ {
		incremented, err := c.carts.IncrementCartItem(ctx, userID, productID, quantity)
		if err != nil {
			return nil, fmt.Errorf("increment cart item: %w", err)
		}
		if incremented {
			return c.changed(ctx, userID)
		}

		// Le $push n'aboutit que si la ligne est toujours absente.
		pushed, err := c.carts.PushCartItem(ctx, userID, models.CartItem{Product: productID, Quantity: quantity})
		if err != nil {
			return nil, fmt.Errorf("push cart item: %w", err)
		}
		if pushed {
			return c.changed(ctx, userID)
		}
	}
	return nil, notFoundError("User not found")
}

func (c *Cart) Update(ctx context.Context, userID, productID primitive.ObjectID, quantity int) ([]models.CartLine, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	found, err := c.carts.SetCartItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("set cart item quantity: %w", err)
	}
	if !found {
		return nil, notFoundError("Item not in cart")
	}
	return c.changed(ctx, userID)
}

// Remove est idempotent.
func (c *Cart) Remove(ctx context.Context, userID, productID primitive.ObjectID) ([]models.CartLine, error) {
	if err := c.carts.PullCartItem(ctx, userID, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		return nil, fmt.Errorf("pull cart item: %w", err)
	}
	return c.changed(ctx, userID)
}

func (c *Cart) Clear(ctx context.Context, userID primitive.ObjectID) ([]models.CartLine, error) {
	if err := c.carts.ClearCart(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	c.notify(ctx, userID, 0)
	return []models.CartLine{}, nil
}

// Count additionne les quantités, utilisé pour le badge du panier.
func Count(lines []models.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) changed(ctx context.Context, userID primitive.ObjectID) ([]models.CartLine, error) {
	lines, err := c.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.notify(ctx, userID, Count(lines))
	return lines, nil
}

// notify publie dans la requête : les compteurs partent dans l'ordre des
// mutations. Un échec est seulement journalisé.
func (c *Cart) notify(ctx context.Context, userID primitive.ObjectID, count int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := c.notifier.CartChanged(ctx, userID.Hex(), count); err != nil {
		log.Printf("⚠️ Notification panier %s: %v", userID.Hex(), err)
	}
}
