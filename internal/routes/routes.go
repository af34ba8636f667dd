package routes

import (
	"net/http"

	"fertilizer_back_end/internal/handlers/product"
	"fertilizer_back_end/internal/handlers/user"
	"fertilizer_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const healthMessage = "🌿 Fertilizer Backend is running successfully!"

// Handlers regroupe les handlers montés sur le routeur. CartSocket et Images
// sont optionnels.
type Handlers struct {
	Auth       *user.AuthHandler
	Cart       *user.CartHandler
	CartSocket *user.CartSocket
	Orders     *user.OrderHandler
	Wishlist   *user.WishlistHandler
	Products   *product.ProductHandler
	Reviews    *product.ReviewHandler
	Images     *product.ImageHandler
}

// RegisterRoutes monte l'API. limiter peut être nil : la connexion n'est
// alors pas limitée.
func RegisterRoutes(r *gin.Engine, h Handlers, tokens middleware.TokenParser, limiter *redis.Client) {
	auth := middleware.AuthRequired(tokens)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, healthMessage)
	})

	if h.Images != nil {
		r.GET("/uploads/reviews/:name", h.Images.ServeReviewImage)
	}

	api := r.Group("/api")

	// Users
	users := api.Group("/users")
	users.POST("/register", h.Auth.Register)
	users.POST("/login", middleware.LoginRateLimit(limiter), h.Auth.Login)
	users.GET("/profile", auth, h.Auth.GetProfile)
	users.PUT("/profile", auth, h.Auth.UpdateProfile)
	users.PUT("/password", auth, h.Auth.ChangePassword)

	// Products
	products := api.Group("/products")
	products.GET("", h.Products.GetProducts)
	products.GET("/search", h.Products.SearchProducts)
	products.GET("/:id", h.Products.GetProduct)

	// Cart
	cart := api.Group("/cart")
	if h.CartSocket != nil {
		cart.GET("/ws", middleware.TokenFromQuery(), auth, h.CartSocket.Serve)
	}
	cart.Use(auth)
	cart.GET("", h.Cart.GetCart)
	cart.POST("", h.Cart.AddToCart)
	cart.DELETE("/clear", h.Cart.ClearCart)
	cart.PUT("/:productId", h.Cart.UpdateCartItem)
	cart.DELETE("/:productId", h.Cart.RemoveFromCart)

	// Orders
	orders := api.Group("/orders", auth)
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("", h.Orders.GetMyOrders)
	orders.GET("/my-orders", h.Orders.GetMyOrders)
	orders.GET("/check-purchase/:productId", h.Orders.CheckPurchase)
	orders.GET("/:id", h.Orders.GetOrderByID)
	orders.PUT("/:id/cancel", h.Orders.CancelOrder)

	// Reviews
	reviews := api.Group("/reviews")
	reviews.GET("/product/:productId", h.Reviews.GetProductReviews)
	reviews.POST("", auth, h.Reviews.CreateReview)
	reviews.PUT("/:id", auth, h.Reviews.UpdateReview)
	reviews.DELETE("/:id", auth, h.Reviews.DeleteReview)
	reviews.PUT("/:id/like", auth, h.Reviews.ToggleLike)

	// Wishlist
	wishlist := api.Group("/wishlist", auth)
	wishlist.GET("", h.Wishlist.GetWishlist)
	wishlist.POST("", h.Wishlist.AddToWishlist)
	wishlist.DELETE("/:productId", h.Wishlist.RemoveFromWishlist)
	wishlist.GET("/check/:productId", h.Wishlist.CheckWishlist)
}
