package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultReviewPage  = 1
	defaultReviewLimit = 10
)

// ReviewInput correspond aux champs du formulaire multipart de création.
// Rating vaut 0 quand il est absent.
type ReviewInput struct {
	Product string
	Rating  int
	Title   string
	Comment string
}

// ReviewChanges est une mise à jour partielle : nil laisse le champ intact.
type ReviewChanges struct {
	Rating  *int
	Title   *string
	Comment *string
}

// LikeState est l'état des likes après un basculement.
type LikeState struct {
	Likes      []primitive.ObjectID `json:"likes"`
	LikesCount int                  `json:"likesCount"`
}

type Reviews struct {
	reviews ReviewStore
	users   UserStore
	orders  *Orders
	catalog *Catalog
	files   FileStore
}

func NewReviews(reviews ReviewStore, users UserStore, orders *Orders, catalog *Catalog, files FileStore) *Reviews {
	return &Reviews{reviews: reviews, users: users, orders: orders, catalog: catalog, files: files}
}

// ListForProduct renvoie une page d'avis, les plus récents d'abord,
// avec le profil de l'auteur. page et limit invalides prennent 1 et 10.
// Une page dont le décalage déborde int64 est refusée.
func (s *Reviews) ListForProduct(ctx context.Context, productID primitive.ObjectID, page, limit int) (*models.ReviewPage, error) {
	if page < 1 {
		page = defaultReviewPage
	}
	if limit < 1 {
		limit = defaultReviewLimit
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return nil, validationError("Page out of range")
	}
	skip := int64(page-1) * int64(limit)

	reviews, total, err := s.reviews.ListByProduct(ctx, productID, skip, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	if err := s.attachAuthors(ctx, reviews); err != nil {
		return nil, err
	}
	return &models.ReviewPage{
		Reviews: reviews,
		Total:   total,
		Page:    page,
		Pages:   int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *Reviews) Create(ctx context.Context, userID primitive.ObjectID, in ReviewInput, uploads []Upload) (*models.Review, error) {
	if strings.TrimSpace(in.Product) == "" || in.Rating == 0 || strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Comment) == "" {
		return nil, validationError("Please provide product, rating, title, and comment")
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}
	productID, err := ParseID("product", in.Product)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}
	switch _, err := s.reviews.FindByUserAndProduct(ctx, userID, productID); {
	case err == nil:
		return nil, conflictError("You have already reviewed this product")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find review: %w", err)
	}

	verified, err := s.orders.CheckPurchase(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	images, err := s.store(ctx, uploads)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:           userID,
		ProductID:        productID,
		Rating:           in.Rating,
		Title:            strings.TrimSpace(in.Title),
		Comment:          strings.TrimSpace(in.Comment),
		Images:           images,
		Likes:            []primitive.ObjectID{},
		VerifiedPurchase: verified,
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		s.discard(images)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("You have already reviewed this product")
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	log.Printf("✅ Avis %s créé sur le produit %s", review.ID.Hex(), productID.Hex())

	s.refresh(ctx, productID)
	if err := s.attachAuthor(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Update remplace toutes les images quand de nouvelles sont envoyées.
// Les anciens fichiers ne sont supprimés qu'une fois l'avis enregistré.
func (s *Reviews) Update(ctx context.Context, userID, reviewID primitive.ObjectID, changes ReviewChanges, uploads []Upload) (*models.Review, error) {
	if changes.Rating != nil {
		if err := validateRating(*changes.Rating); err != nil {
			return nil, err
		}
	}
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}

	current, err := s.owned(ctx, userID, reviewID, "Not authorized to update this review")
	if err != nil {
		return nil, err
	}

	verified, err := s.orders.CheckPurchase(ctx, userID, current.ProductID)
	if err != nil {
		return nil, err
	}
	update := models.ReviewUpdate{
		Rating:           changes.Rating,
		Title:            trimmed(changes.Title),
		Comment:          trimmed(changes.Comment),
		VerifiedPurchase: verified,
	}

	if len(uploads) > 0 {
		images, err := s.store(ctx, uploads)
		if err != nil {
			return nil, err
		}
		update.Images = images
	}

	updated, err := s.reviews.Update(ctx, reviewID, update)
	if err != nil {
		s.discard(update.Images)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("Review not found")
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	// les anciennes images ne partent qu'une fois l'avis enregistré :
	// un échec de Update laisse l'avis et ses photos intacts
	if update.Images != nil {
		s.discard(current.Images)
	}

	s.refresh(ctx, updated.ProductID)
	if err := s.attachAuthor(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete supprime les images puis l'avis.
func (s *Reviews) Delete(ctx context.Context, userID, reviewID primitive.ObjectID) error {
	review, err := s.owned(ctx, userID, reviewID, "Not authorized to delete this review")
	if err != nil {
		return err
	}
	s.discard(review.Images)

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("Review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}
	s.refresh(ctx, review.ProductID)
	return nil
}

// ToggleLike ajoute ou retire le like de l'utilisateur, sans restriction
// de propriétaire.
func (s *Reviews) ToggleLike(ctx context.Context, userID, reviewID primitive.ObjectID) (*LikeState, error) {
	review, err := s.reviews.ToggleLike(ctx, reviewID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	likes := review.Likes
	if likes == nil {
		likes = []primitive.ObjectID{}
	}
	return &LikeState{Likes: likes, LikesCount: len(likes)}, nil
}

func (s *Reviews) owned(ctx context.Context, userID, reviewID primitive.ObjectID, denied string) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review.UserID != userID {
		return nil, forbiddenError(denied)
	}
	return review, nil
}

// store envoie les fichiers au stockage objet. En cas d'échec, les fichiers
// déjà envoyés sont supprimés.
func (s *Reviews) store(ctx context.Context, uploads []Upload) ([]string, error) {
	names := make([]string, 0, len(uploads))
	for _, up := range uploads {
		name, err := s.storeOne(ctx, up)
		if err != nil {
			s.discard(names)
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Reviews) storeOne(ctx context.Context, up Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	name := "review-" + uuid.NewString() + ext

	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}

	r, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", up.Filename, err)
	}
	defer r.Close()

	if err := s.files.Save(ctx, name, r, up.Size, contentType); err != nil {
		return "", fmt.Errorf("store image %s: %w", name, err)
	}
	return name, nil
}

// discard supprime des fichiers sans bloquer la réponse sur une erreur.
func (s *Reviews) discard(names []string) {
	for _, name := range names {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		if err := s.files.Delete(ctx, name); err != nil {
			log.Printf("⚠️ Suppression image %s: %v", name, err)
		}
		cancel()
	}
}

func (s *Reviews) refresh(ctx context.Context, productID primitive.ObjectID) {
	if err := s.catalog.RefreshRating(ctx, productID); err != nil {
		log.Printf("⚠️ Mise à jour de la note du produit %s: %v", productID.Hex(), err)
	}
}

func (s *Reviews) attachAuthor(ctx context.Context, review *models.Review) error {
	one := []models.Review{*review}
	if err := s.attachAuthors(ctx, one); err != nil {
		return err
	}
	review.Author = one[0].Author
	return nil
}

// attachAuthors joint le profil minimal (nom, avatar) de chaque auteur.
func (s *Reviews) attachAuthors(ctx context.Context, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load review authors: %w", err)
	}
	authors := make(map[primitive.ObjectID]*models.Author, len(users))
	for _, u := range users {
		authors[u.ID] = &models.Author{ID: u.ID, Name: u.Username, Avatar: u.Avatar}
	}
	for i := range reviews {
		reviews[i].Author = authors[reviews[i].UserID]
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
