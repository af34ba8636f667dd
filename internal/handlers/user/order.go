package user

import (
	"log"
	"net/http"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"
	"fertilizer_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *shop.Orders
	audit  utils.Auditor
}

func NewOrderHandler(orders *shop.Orders, audit utils.Auditor) *OrderHandler {
	return &OrderHandler{orders: orders, audit: audit}
}

// ✅ Crée une commande à partir du panier envoyé par le client
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	var input shop.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid order data")
		return
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Create(ctx, userID, input)
	if err != nil {
		utils.LogFailedAction(h.audit, c, utils.ActionOrderCreate, utils.ResourceOrder, "", err.Error())
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionOrderCreate, utils.ResourceOrder, order.ID.Hex())

	c.JSON(http.StatusCreated, gin.H{"order": order, "message": "Order placed successfully"})
}

// ✅ Récupère toutes les commandes de l'utilisateur connecté
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	orders, err := h.orders.List(ctx, userID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	log.Printf("✅ %d commandes trouvées pour user %s", len(orders), userID.Hex())
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ✅ Récupère une commande spécifique par ID
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlers.PathID(c, "id", "order id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Get(ctx, userID, orderID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlers.PathID(c, "id", "order id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	order, err := h.orders.Cancel(ctx, userID, orderID)
	if err != nil {
		utils.LogFailedAction(h.audit, c, utils.ActionOrderCancel, utils.ResourceOrder, orderID.Hex(), err.Error())
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionOrderCancel, utils.ResourceOrder, orderID.Hex())
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CheckPurchase(c *gin.Context) {
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

	purchased, err := h.orders.CheckPurchase(ctx, userID, productID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasPurchased": purchased})
}
