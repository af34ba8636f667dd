package shop

import (
	"context"
	"io"

	"fertilizer_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Les interfaces sont définies côté consommateur ; internal/repository
// fournit les implémentations MongoDB.

type ProductStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, category string) ([]models.Product, error)
	SearchText(ctx context.Context, query string) ([]models.Product, error)
	UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, count int) (*models.Product, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// CartStore manipule le panier embarqué par des mises à jour atomiques
// sur un seul document. Les booléens indiquent si le filtre a trouvé un document.
type CartStore interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error)
	IncrementCartItem(ctx context.Context, userID, productID primitive.ObjectID, delta int) (bool, error)
	PushCartItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) (bool, error)
	SetCartItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (bool, error)
	PullCartItem(ctx context.Context, userID, productID primitive.ObjectID) error
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
}

type WishlistStore interface {
	GetWishlist(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	AddToWishlist(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
	RemoveFromWishlist(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) (*models.Order, error)
	ExistsWithProduct(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

type ReviewStore interface {
	Insert(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	FindByUserAndProduct(ctx context.Context, userID, productID primitive.ObjectID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID, skip, limit int64) ([]models.Review, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.ReviewUpdate) (*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Review, error)
	RatingStats(ctx context.Context, productID primitive.ObjectID) (models.ProductRating, error)
}

// FileStore stocke les images des avis sous un nom de fichier.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, name string) error
}

// Upload est un fichier reçu du client, pas encore stocké.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]primitive.ObjectID, error)
	Index(ctx context.Context, product *models.Product) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error
}

// CartNotifier prévient les clients connectés qu'un panier a changé.
type CartNotifier interface {
	CartChanged(ctx context.Context, userID string, count int) error
}

type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}
