package user

import (
	"net/http"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cart *shop.Cart
}

func NewCartHandler(cart *shop.Cart) *CartHandler {
	return &CartHandler{cart: cart}
}

// 🔒 GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	items, err := h.cart.Get(ctx, userID)
	reply(c, items, err)
}

// 🟢 POST /api/cart
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	var input struct {
		ProductID string `json:"productId"`
		Quantity  *int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid cart data")
		return
	}
	productID, err := shop.ParseID("productId", input.ProductID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	// quantité 1 par défaut
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	items, err := h.cart.Add(ctx, userID, productID, quantity)
	reply(c, items, err)
}

// ✏️ PUT /api/cart/:productId
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	productID, ok := handlers.PathID(c, "productId", "productId")
	if !ok {
		return
	}
	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid cart data")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	items, err := h.cart.Update(ctx, userID, productID, input.Quantity)
	reply(c, items, err)
}

// ❌ DELETE /api/cart/:productId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
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

	items, err := h.cart.Remove(ctx, userID, productID)
	reply(c, items, err)
}

// 🧹 DELETE /api/cart/clear
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	items, err := h.cart.Clear(ctx, userID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "items": items})
}

func reply(c *gin.Context, items []models.CartLine, err error) {
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
