package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fertilizer_back_end/internal/handlers/product"
	"fertilizer_back_end/internal/handlers/user"
	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/shop"
	"fertilizer_back_end/internal/shop/shoptest"
	"fertilizer_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	router *gin.Engine
	files  *shoptest.Files
	orders *shoptest.Orders
	search *shoptest.Searcher
	urea   models.Product
	npk    models.Product
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{
		urea: models.Product{ID: primitive.NewObjectID(), Name: "Urée 46%", Price: 100, Category: "Azote", Stock: 40},
		npk:  models.Product{ID: primitive.NewObjectID(), Name: "NPK 15-15-15", Price: 50, Category: "Complexe", Stock: 25},
	}
	products := shoptest.NewProducts(s.urea, s.npk)
	users := shoptest.NewUsers()
	reviews := shoptest.NewReviews()
	s.orders = shoptest.NewOrders()
	s.files = shoptest.NewFiles()
	s.search = &shoptest.Searcher{}
	issuer := utils.NewJWTIssuer("routes-test-secret")

	catalog := shop.NewCatalog(products, reviews, shoptest.NewCache(), s.search)
	orders := shop.NewOrders(s.orders, users, catalog, &shoptest.Publisher{}, &shoptest.Mailer{})
	audit := utils.LogAuditor{}

	s.router = gin.New()
	RegisterRoutes(s.router, Handlers{
		Auth:     user.NewAuthHandler(shop.NewAccounts(users, orders, issuer), audit),
		Cart:     user.NewCartHandler(shop.NewCart(users, catalog, &shoptest.Notifier{})),
		Orders:   user.NewOrderHandler(orders, audit),
		Wishlist: user.NewWishlistHandler(shop.NewWishlist(users, catalog)),
		Products: product.NewProductHandler(catalog),
		Reviews:  product.NewReviewHandler(shop.NewReviews(reviews, users, orders, catalog, s.files), audit),
		Images:   product.NewImageHandler(s.files),
	}, issuer, nil)
	return s
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req, token)
}

func (s *server) send(t *testing.T, req *http.Request, token string) (int, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		var v any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
		if m, ok := v.(map[string]any); ok {
			out = m
		} else {
			out["list"] = v
		}
	}
	return w.Code, out
}

func (s *server) register(t *testing.T, name string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/users/register", "", map[string]any{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret1",
		"address":  "12 rue des Champs",
	})
	require.Equal(t, http.StatusCreated, code, body)
	require.NotEmpty(t, body["token"])
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fertilizer Backend is running")
}

func TestCheckoutScenario(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "alice")

	code, body := s.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": s.urea.ID.Hex(), "quantity": 2})
	require.Equal(t, http.StatusOK, code, body)
	code, body = s.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": s.npk.ID.Hex()})
	require.Equal(t, http.StatusOK, code, body)
	require.Len(t, body["items"], 2)

	code, body = s.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{
			{"product": s.urea.ID.Hex(), "quantity": 2, "price": 100},
			{"product": s.npk.ID.Hex(), "quantity": 1, "price": 50},
		},
		"totalAmount":     250,
		"shippingAddress": map[string]any{"fullName": "Alice", "city": "Reims"},
		"paymentMethod":   "cod",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Order placed successfully", body["message"])
	order := body["order"].(map[string]any)
	assert.Equal(t, models.StatusProcessing, order["orderStatus"])
	assert.Equal(t, models.PaymentPaid, order["paymentStatus"])
	assert.Equal(t, models.PaymentCOD, order["paymentMethod"])
	assert.Len(t, order["items"], 2)
	orderID := order["_id"].(string)

	code, body = s.do(t, http.MethodGet, "/api/orders/my-orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["orders"], 1)

	code, body = s.do(t, http.MethodGet, "/api/orders/check-purchase/"+s.npk.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["hasPurchased"])

	code, body = s.do(t, http.MethodPut, "/api/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Order cannot be cancelled", body["message"])
	assert.Equal(t, false, body["success"])

	code, body = s.do(t, http.MethodDelete, "/api/cart/clear", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cart cleared", body["message"])
	assert.Empty(t, body["items"])

	code, body = s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.Len(t, body["orders"], 1)
	assert.NotContains(t, body, "password")
}

func TestOrderAccessControl(t *testing.T) {
	s := newServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	code, body := s.do(t, http.MethodPost, "/api/orders", alice, map[string]any{
		"items": []map[string]any{{"product": s.urea.ID.Hex(), "quantity": 1, "price": 100}},
	})
	require.Equal(t, http.StatusCreated, code, body)
	orderID := body["order"].(map[string]any)["_id"].(string)

	code, body = s.do(t, http.MethodGet, "/api/orders/"+orderID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized", body["message"])

	code, _ = s.do(t, http.MethodGet, "/api/orders/"+primitive.NewObjectID().Hex(), alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodGet, "/api/orders/not-an-id", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid order id", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/orders", alice, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No items in order", body["message"])
	assert.Equal(t, 1, s.orders.Count())
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "No token, authorization denied", body["error"])

	code, _ = s.do(t, http.MethodGet, "/api/wishlist", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	s.register(t, "alice")
	code, body = s.do(t, http.MethodPost, "/api/users/register", "", map[string]any{
		"username": "alice2", "email": "ALICE@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/users/login", "", map[string]any{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid credentials", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/users/login", "", map[string]any{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["token"])
}

func TestChangePassword(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "dana")

	code, body := s.do(t, http.MethodPut, "/api/users/password", token, map[string]any{"oldPassword": "wrong-one", "newPassword": "fresh-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Current password is incorrect", body["message"])

	code, _ = s.do(t, http.MethodPut, "/api/users/password", token, map[string]any{"oldPassword": "secret1", "newPassword": "fresh-pass"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/users/login", "", map[string]any{"email": "dana@example.com", "password": "fresh-pass"})
	assert.Equal(t, http.StatusOK, code)
}

func TestProductRoutes(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/api/products?category=azote", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["list"], 1)

	code, body = s.do(t, http.MethodGet, "/api/products/"+s.npk.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "NPK 15-15-15", body["name"])

	code, body = s.do(t, http.MethodGet, "/api/products/"+primitive.NewObjectID().Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Product not found", body["message"])

	s.search.IDs = []primitive.ObjectID{s.npk.ID}
	code, body = s.do(t, http.MethodGet, "/api/products/search?q=npk", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["count"])
	require.Len(t, body["data"], 1)
	assert.Equal(t, "NPK 15-15-15", body["data"].([]any)[0].(map[string]any)["name"])

	// index indisponible : repli sur MongoDB
	s.search.IDs = nil
	s.search.Err = errors.New("elasticsearch down")
	code, body = s.do(t, http.MethodGet, "/api/products/search?q=ur", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = s.do(t, http.MethodGet, "/api/products/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func reviewForm(t *testing.T, fields map[string]string, images map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range images {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReviewFlow(t *testing.T) {
	s := newServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	// Note hors bornes : refusée avant tout envoi de fichier.
	code, body := s.send(t, reviewForm(t, map[string]string{
		"product": s.urea.ID.Hex(), "rating": "6", "title": "Top", "comment": "Très bon",
	}, map[string]string{"champ.jpg": "JPEG"}), alice)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Rating must be between 1 and 5", body["message"])
	assert.Empty(t, s.files.Names())

	code, body = s.send(t, reviewForm(t, map[string]string{
		"product": s.urea.ID.Hex(), "rating": "5", "title": "Top", "comment": "Très bon",
	}, map[string]string{"champ.jpg": "JPEG"}), alice)
	require.Equal(t, http.StatusCreated, code, body)
	review := body["data"].(map[string]any)
	reviewID := review["_id"].(string)
	assert.Equal(t, "alice", review["user"].(map[string]any)["name"])
	images := review["images"].([]any)
	require.Len(t, images, 1)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/reviews/"+images[0].(string), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "JPEG", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	code, body = s.send(t, reviewForm(t, map[string]string{
		"product": s.urea.ID.Hex(), "rating": "4", "title": "Encore", "comment": "Bis",
	}, nil), alice)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You have already reviewed this product", body["message"])

	code, body = s.do(t, http.MethodPut, "/api/reviews/"+reviewID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["likesCount"])

	code, body = s.do(t, http.MethodGet, "/api/reviews/product/"+s.urea.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["pages"])
	assert.Len(t, body["data"], 1)

	code, _ = s.do(t, http.MethodDelete, "/api/reviews/"+reviewID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodDelete, "/api/reviews/"+reviewID, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, s.files.Names())

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/reviews/"+images[0].(string), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWishlistFlow(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "alice")

	code, body := s.do(t, http.MethodPost, "/api/wishlist", token, map[string]any{"productId": s.npk.ID.Hex()})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Product added to wishlist", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/wishlist", token, map[string]any{"productId": s.npk.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Product already in wishlist", body["error"])

	code, body = s.do(t, http.MethodGet, "/api/wishlist/check/"+s.npk.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["inWishlist"])

	code, body = s.do(t, http.MethodGet, "/api/wishlist", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = s.do(t, http.MethodDelete, "/api/wishlist/"+s.npk.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/api/wishlist/check/"+s.npk.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["inWishlist"])

	code, body = s.do(t, http.MethodDelete, "/api/wishlist/"+s.npk.ID.Hex(), token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Product not in wishlist", body["message"])
}
