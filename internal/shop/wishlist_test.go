package shop

import (
	"context"
	"testing"

	"fertilizer_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWishlist_AddCheckRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	ids, err := f.wishlist.Add(ctx, uid, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.p1.ID}, ids)

	in, err := f.wishlist.Check(ctx, uid, f.p1.ID)
	require.NoError(t, err)
	assert.True(t, in)

	ids, err = f.wishlist.Remove(ctx, uid, f.p1.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	in, err = f.wishlist.Check(ctx, uid, f.p1.ID)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestWishlist_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	_, err := f.wishlist.Add(ctx, uid, f.p1.ID)
	require.NoError(t, err)

	_, err = f.wishlist.Add(ctx, uid, f.p1.ID)
	assertShopError(t, err, ErrConflict, "Product already in wishlist")

	_, err = f.wishlist.Remove(ctx, uid, f.p2.ID)
	assertShopError(t, err, ErrValidation, "Product not in wishlist")

	_, err = f.wishlist.Add(ctx, uid, primitive.NewObjectID())
	assertShopError(t, err, ErrNotFound, "Product not found")

	_, err = f.wishlist.Get(ctx, primitive.NewObjectID())
	assertShopError(t, err, ErrNotFound, "User not found")

	ids, err := f.wishlist.Get(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestWishlist_GetResolvesInOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	uid := f.users.Add("alice")

	_, err := f.wishlist.Add(ctx, uid, f.p2.ID)
	require.NoError(t, err)
	_, err = f.wishlist.Add(ctx, uid, f.p1.ID)
	require.NoError(t, err)

	// Un produit retiré du catalogue disparaît de la liste renvoyée.
	gone := primitive.NewObjectID()
	f.users.Modify(uid, func(u *models.User) { u.Wishlist = append(u.Wishlist, gone) })

	products, err := f.wishlist.Get(ctx, uid)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "NPK 15-15-15", products[0].Name)
	assert.Equal(t, "Urée 46%", products[1].Name)
}
