package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	LoginMaxAttempts = 5
	LoginCooldown    = 15 * time.Minute
)

// LoginRateLimit limite les échecs de connexion par email. Sans client
// Redis, le middleware laisse tout passer.
func LoginRateLimit(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		// Lire le body sans le consommer
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || strings.TrimSpace(input.Email) == "" {
			c.Next()
			return
		}
		email := strings.ToLower(strings.TrimSpace(input.Email))

		ctx := c.Request.Context()
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if ttl, err := client.TTL(ctx, cooldownKey).Result(); err == nil && ttl > 0 {
			tooManyAttempts(c, ttl)
			return
		} else if err != nil {
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}

		attempts, _ := client.Get(ctx, key).Int()
		if attempts >= LoginMaxAttempts {
			// Activer le cooldown
			pipe := client.TxPipeline()
			pipe.Set(ctx, cooldownKey, "1", LoginCooldown)
			pipe.Del(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Printf("⚠️ Activation cooldown %s: %v", email, err)
			}
			tooManyAttempts(c, LoginCooldown)
			return
		}

		remaining := LoginMaxAttempts - attempts - 1
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		c.Next()

		switch status := c.Writer.Status(); {
		case status == http.StatusBadRequest || status == http.StatusUnauthorized:
			pipe := client.TxPipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, LoginCooldown)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Printf("⚠️ Comptage échec connexion %s: %v", email, err)
			}
		case status == http.StatusOK:
			client.Del(ctx, key, cooldownKey)
		}
	}
}

func tooManyAttempts(c *gin.Context, ttl time.Duration) {
	minutes := int(ttl.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	msg := fmt.Sprintf("Too many failed login attempts. Try again in %d minutes", minutes)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":     false,
		"error":       msg,
		"message":     msg,
		"retry_after": int(ttl.Seconds()),
	})
}
