package product

import (
	"net/http"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	catalog *shop.Catalog
}

func NewProductHandler(catalog *shop.Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// GET /api/products?category=
func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	products, err := h.catalog.List(ctx, c.Query("category"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/products/search?q=
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	ctx, cancel := handlers.Context(c)
	defer cancel()

	products, err := h.catalog.Search(ctx, c.Query("q"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "data": products})
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := handlers.PathID(c, "id", "product id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	product, err := h.catalog.Get(ctx, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
