package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		shop.ErrValidation:          http.StatusBadRequest,
		shop.ErrConflict:            http.StatusBadRequest,
		shop.ErrInvalidState:        http.StatusBadRequest,
		shop.ErrNotFound:            http.StatusNotFound,
		shop.ErrForbidden:           http.StatusForbidden,
		shop.ErrUnauthorized:        http.StatusUnauthorized,
		errors.New("mongo timeout"): http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), kind.Error())
	}
}

func respond(err error) (int, map[string]any) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, err)

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestRespondError(t *testing.T) {
	code, body := respond(&shop.Error{Kind: shop.ErrNotFound, Message: "Product not found"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["error"])
	assert.Equal(t, "Product not found", body["message"])

	wrapped := fmt.Errorf("create: %w", &shop.Error{Kind: shop.ErrConflict, Message: "dup"})
	code, _ = respond(wrapped)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = respond(errors.New("connection refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Server error", body["message"])
}

func TestCurrentUserID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, ok := CurrentUserID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	want := primitive.NewObjectID()
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set("user_id", want.Hex())
	got, ok := CurrentUserID(c)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPathID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	_, ok := PathID(c, "id", "order id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid order id")
}
