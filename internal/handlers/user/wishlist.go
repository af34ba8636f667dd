package user

import (
	"net/http"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
)

type WishlistHandler struct {
	wishlist *shop.Wishlist
}

func NewWishlistHandler(wishlist *shop.Wishlist) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// GetWishlist récupère la wishlist de l'utilisateur
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	products, err := h.wishlist.Get(ctx, userID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "data": products})
}

// AddToWishlist ajoute un produit à la wishlist
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid productId")
		return
	}
	productID, err := shop.ParseID("productId", req.ProductID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	ids, err := h.wishlist.Add(ctx, userID, productID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product added to wishlist", "data": ids})
}

// RemoveFromWishlist retire un produit de la wishlist
func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	productID, ok := handlers.PathID(c, "productId", "productId")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	ids, err := h.wishlist.Remove(ctx, userID, productID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product removed from wishlist", "data": ids})
}

// CheckWishlist indique si un produit est dans la wishlist
func (h *WishlistHandler) CheckWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	productID, ok := handlers.PathID(c, "productId", "productId")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	in, err := h.wishlist.Check(ctx, userID, productID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inWishlist": in})
}
