package shop

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reviewInput(p models.Product, rating int) ReviewInput {
	return ReviewInput{Product: p.ID.Hex(), Rating: rating, Title: "Très efficace", Comment: "Rendement en hausse sur le blé."}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestReviews_CreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	_, err := f.review.Create(ctx, uid, ReviewInput{Product: f.p1.ID.Hex(), Rating: 4, Title: "x"}, nil)
	assertShopError(t, err, ErrValidation, "Please provide product, rating, title, and comment")

	_, err = f.review.Create(ctx, uid, reviewInput(f.p1, 6), []Upload{upload("a.png", "img")})
	assertShopError(t, err, ErrValidation, "Rating must be between 1 and 5")

	_, err = f.review.Create(ctx, uid, reviewInput(f.p1, 4), []Upload{upload("a.exe", "bin")})
	assertShopError(t, err, ErrValidation, "Only image files are allowed!")

	big := upload("big.jpg", "x")
	big.Size = MaxImageSize + 1
	_, err = f.review.Create(ctx, uid, reviewInput(f.p1, 4), []Upload{big})
	assertShopError(t, err, ErrValidation, "Image size must not exceed 5MB")

	many := make([]Upload, MaxReviewImages+1)
	for i := range many {
		many[i] = upload("p.png", "x")
	}
	_, err = f.review.Create(ctx, uid, reviewInput(f.p1, 4), many)
	assertShopError(t, err, ErrValidation, "You can upload at most 5 images")

	// Rien n'a été écrit ni envoyé.
	assert.Zero(t, f.reviews.Count())
	assert.Empty(t, f.files.Names())
}

func TestReviews_CreateUnknownProduct(t *testing.T) {
	f := newFixture()
	uid := f.users.Add("alice")

	_, err := f.review.Create(context.Background(), uid, reviewInput(models.Product{ID: primitive.NewObjectID()}, 4), nil)
	assertShopError(t, err, ErrNotFound, "Product not found")
}

func TestReviews_CreateTwiceConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	first, err := f.review.Create(ctx, uid, reviewInput(f.p1, 5), []Upload{upload("a.jpg", "A")})
	require.NoError(t, err)
	require.NotNil(t, first.Author)
	assert.Equal(t, "alice", first.Author.Name)
	assert.Len(t, first.Images, 1)
	assert.True(t, strings.HasPrefix(first.Images[0], "review-"))
	assert.True(t, strings.HasSuffix(first.Images[0], ".jpg"))

	_, err = f.review.Create(ctx, uid, reviewInput(f.p1, 3), []Upload{upload("b.jpg", "B")})
	assertShopError(t, err, ErrConflict, "You have already reviewed this product")

	assert.Equal(t, 1, f.reviews.Count())
	assert.Equal(t, first.Images, f.files.Names())
}

func TestReviews_DuplicateKeyCompensatesUploads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")
	f.reviews.InsertErr = repository.ErrDuplicate

	_, err := f.review.Create(ctx, uid, reviewInput(f.p1, 5), []Upload{upload("a.jpg", "A"), upload("b.png", "B")})
	assertShopError(t, err, ErrConflict, "You have already reviewed this product")
	assert.Empty(t, f.files.Names())
}

func TestReviews_PartialUploadFailureCleansUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")
	f.files.FailOnNth = 2

	_, err := f.review.Create(ctx, uid, reviewInput(f.p1, 5), []Upload{upload("a.jpg", "A"), upload("b.jpg", "B"), upload("c.jpg", "C")})
	require.Error(t, err)
	assert.Empty(t, f.files.Names())
	assert.Zero(t, f.reviews.Count())
}

func TestReviews_InsertFailureCleansUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")
	f.reviews.InsertErr = errors.New("mongo down")

	_, err := f.review.Create(ctx, uid, reviewInput(f.p1, 5), []Upload{upload("a.jpg", "A")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.files.Names())
}

func TestReviews_VerifiedPurchaseDerived(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")
	_, err := f.order.Create(ctx, uid, NewOrder{Items: []OrderItemInput{{Product: f.p1.ID.Hex(), Quantity: 1, Price: 100}}})
	require.NoError(t, err)

	r1, err := f.review.Create(ctx, uid, reviewInput(f.p1, 5), nil)
	require.NoError(t, err)
	assert.True(t, r1.VerifiedPurchase)

	r2, err := f.review.Create(ctx, uid, reviewInput(f.p2, 2), nil)
	require.NoError(t, err)
	assert.False(t, r2.VerifiedPurchase)
}

func TestReviews_RatingAggregateRefreshed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := f.users.Add("alice"), f.users.Add("bob")

	// Produit en cache : il doit être invalidé après l'avis.
	_, err := f.catalog.Get(ctx, f.p1.ID)
	require.NoError(t, err)
	require.True(t, f.cache.Has(f.p1.ID))

	_, err = f.review.Create(ctx, alice, reviewInput(f.p1, 5), nil)
	require.NoError(t, err)
	r, err := f.review.Create(ctx, bob, reviewInput(f.p1, 4), nil)
	require.NoError(t, err)

	p, err := f.products.FindByID(ctx, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, p.AverageRating)
	assert.Equal(t, 2, p.ReviewCount)
	assert.False(t, f.cache.Has(f.p1.ID))
	assert.Contains(t, f.search.Indexed(), f.p1.ID)

	require.NoError(t, f.review.Delete(ctx, bob, r.ID))
	p, err = f.products.FindByID(ctx, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.AverageRating)
	assert.Equal(t, 1, p.ReviewCount)
}

func TestReviews_UpdateReplacesImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	created, err := f.review.Create(ctx, uid, reviewInput(f.p1, 3), []Upload{upload("a.jpg", "A"), upload("b.jpg", "B")})
	require.NoError(t, err)
	oldImages := created.Images

	updated, err := f.review.Update(ctx, uid, created.ID, ReviewChanges{Rating: intPtr(4), Title: strPtr("Mieux que prévu")}, []Upload{upload("c.png", "C")})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "Mieux que prévu", updated.Title)
	assert.Equal(t, created.Comment, updated.Comment)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, updated.Images, f.files.Names())
	for _, old := range oldImages {
		assert.NotContains(t, f.files.Names(), old)
	}
}

func TestReviews_FailedUpdateKeepsOldImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	created, err := f.review.Create(ctx, uid, reviewInput(f.p1, 3), []Upload{upload("a.jpg", "A")})
	require.NoError(t, err)

	f.reviews.UpdateErr = errors.New("mongo indisponible")
	_, err = f.review.Update(ctx, uid, created.ID, ReviewChanges{Rating: intPtr(5)}, []Upload{upload("b.jpg", "B")})
	require.Error(t, err)
	assert.Equal(t, created.Images, f.files.Names())
}

func TestReviews_UpdateWithoutImagesKeepsThem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	created, err := f.review.Create(ctx, uid, reviewInput(f.p1, 3), []Upload{upload("a.jpg", "A")})
	require.NoError(t, err)

	updated, err := f.review.Update(ctx, uid, created.ID, ReviewChanges{Comment: strPtr("Toujours bien")}, nil)
	require.NoError(t, err)
	assert.Equal(t, created.Images, updated.Images)
	assert.Equal(t, created.Images, f.files.Names())
}

func TestReviews_UpdateChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := f.users.Add("alice"), f.users.Add("bob")

	created, err := f.review.Create(ctx, alice, reviewInput(f.p1, 3), nil)
	require.NoError(t, err)

	_, err = f.review.Update(ctx, bob, created.ID, ReviewChanges{Rating: intPtr(1)}, nil)
	assertShopError(t, err, ErrForbidden, "Not authorized to update this review")

	_, err = f.review.Update(ctx, alice, primitive.NewObjectID(), ReviewChanges{}, nil)
	assertShopError(t, err, ErrNotFound, "Review not found")

	_, err = f.review.Update(ctx, alice, created.ID, ReviewChanges{Rating: intPtr(0)}, []Upload{upload("a.jpg", "A")})
	assertShopError(t, err, ErrValidation, "Rating must be between 1 and 5")
	assert.Empty(t, f.files.Names())
}

func TestReviews_DeleteRemovesFiles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := f.users.Add("alice"), f.users.Add("bob")

	created, err := f.review.Create(ctx, alice, reviewInput(f.p1, 3), []Upload{upload("a.jpg", "A")})
	require.NoError(t, err)

	err = f.review.Delete(ctx, bob, created.ID)
	assertShopError(t, err, ErrForbidden, "Not authorized to delete this review")

	require.NoError(t, f.review.Delete(ctx, alice, created.ID))
	assert.Empty(t, f.files.Names())
	assert.Zero(t, f.reviews.Count())

	err = f.review.Delete(ctx, alice, created.ID)
	assertShopError(t, err, ErrNotFound, "Review not found")
}

func TestReviews_ToggleLikeTwiceRestores(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := f.users.Add("alice"), f.users.Add("bob")

	created, err := f.review.Create(ctx, alice, reviewInput(f.p1, 5), nil)
	require.NoError(t, err)

	state, err := f.review.ToggleLike(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)

	state, err = f.review.ToggleLike(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{alice, bob}, state.Likes)

	state, err = f.review.ToggleLike(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{alice}, state.Likes)
	assert.Equal(t, 1, state.LikesCount)

	_, err = f.review.ToggleLike(ctx, bob, primitive.NewObjectID())
	assertShopError(t, err, ErrNotFound, "Review not found")
}

func TestReviews_ListForProductPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		uid := f.users.Add("user" + string(rune('a'+i)))
		_, err := f.review.Create(ctx, uid, reviewInput(f.p1, 1+i%5), nil)
		require.NoError(t, err)
	}

	page, err := f.review.ListForProduct(ctx, f.p1.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Reviews, 10)
	assert.Equal(t, "userl", page.Reviews[0].Author.Name)
	assert.True(t, page.Reviews[0].CreatedAt.After(page.Reviews[1].CreatedAt))

	page, err = f.review.ListForProduct(ctx, f.p1.ID, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Reviews, 2)

	page, err = f.review.ListForProduct(ctx, f.p2.ID, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Reviews)
	assert.Empty(t, page.Reviews)
	assert.Equal(t, 0, page.Pages)
}

func TestReviews_ListForProductRejectsOverflowingPage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.review.ListForProduct(ctx, f.p1.ID, math.MaxInt, 10)
	assertShopError(t, err, ErrValidation, "Page out of range")

	_, err = f.review.ListForProduct(ctx, f.p1.ID, 1<<40, 1<<30)
	assertShopError(t, err, ErrValidation, "Page out of range")

	page, err := f.review.ListForProduct(ctx, f.p1.ID, 1<<20, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
}
