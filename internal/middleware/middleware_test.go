package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fertilizer_back_end/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(issuer *utils.JWTIssuer) *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthRequired(issuer), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	issuer := utils.NewJWTIssuer("test-secret")
	r := authRouter(issuer)

	token, err := issuer.GenerateToken("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "64b7f0c2a1b2c3d4e5f60718"},
		{"missing", "", http.StatusUnauthorized, "No token, authorization denied"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "No token, authorization denied"},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, "Token is not valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAuthRequired_OtherSecretRejected(t *testing.T) {
	other, err := utils.NewJWTIssuer("another-secret").GenerateToken("u1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w := httptest.NewRecorder()
	authRouter(utils.NewJWTIssuer("test-secret")).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Token is not valid", body["message"])
}

func loginRouter(client *redis.Client) *gin.Engine {
	r := gin.New()
	r.POST("/login", LoginRateLimit(client), func(c *gin.Context) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = c.ShouldBindJSON(&in)
		if in.Password != "good" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": "t"})
	})
	return r
}

func login(r http.Handler, email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRateLimit_CooldownAfterFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := loginRouter(client)

	for i := 0; i < LoginMaxAttempts; i++ {
		w := login(r, "alice@example.com", "bad")
		require.Equal(t, http.StatusBadRequest, w.Code, "tentative %d", i+1)
	}

	w := login(r, "Alice@Example.com", "good")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.True(t, mr.Exists("login_cooldown:alice@example.com"))
	assert.Equal(t, LoginCooldown, mr.TTL("login_cooldown:alice@example.com"))

	// Un autre email n'est pas concerné.
	w = login(r, "bob@example.com", "good")
	assert.Equal(t, http.StatusOK, w.Code)

	mr.FastForward(LoginCooldown + 1)
	w = login(r, "alice@example.com", "good")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRateLimit_SuccessResetsCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := loginRouter(client)

	login(r, "alice@example.com", "bad")
	login(r, "alice@example.com", "bad")
	got, err := mr.Get("login_attempts:alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	w := login(r, "alice@example.com", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mr.Exists("login_attempts:alice@example.com"))
}

func TestLoginRateLimit_WithoutRedis(t *testing.T) {
	r := loginRouter(nil)
	for i := 0; i < LoginMaxAttempts+2; i++ {
		assert.Equal(t, http.StatusBadRequest, login(r, "alice@example.com", "bad").Code)
	}
	assert.Equal(t, http.StatusOK, login(r, "alice@example.com", "good").Code)
}
