package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// now est remplaçable dans les tests.
var now = func() time.Time { return time.Now().UTC() }

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// Store regroupe les collections de la boutique sur une même base.
type Store struct {
	Users    *Users
	Products *Products
	Orders   *Orders
	Reviews  *Reviews
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		Users:    NewUsers(db),
		Products: NewProducts(db),
		Orders:   NewOrders(db),
		Reviews:  NewReviews(db),
	}
}

// CreateIndexes crée les index de toutes les collections. Idempotent.
func (s *Store) CreateIndexes(ctx context.Context) error {
	for name, create := range map[string]func(context.Context) error{
		"users":    s.Users.CreateIndexes,
		"products": s.Products.CreateIndexes,
		"orders":   s.Orders.CreateIndexes,
		"reviews":  s.Reviews.CreateIndexes,
	} {
		if err := create(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
