package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenParser extrait l'identifiant utilisateur d'un JWT signé.
type TokenParser interface {
	ParseToken(raw string) (string, error)
}

// AuthRequired exige un en-tête "Authorization: Bearer <token>" valide et
// place l'identifiant dans le contexte sous "user_id".
func AuthRequired(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !ok || tokenString == "" {
			unauthorized(c, "No token, authorization denied")
			return
		}

		userID, err := tokens.ParseToken(tokenString)
		if err != nil {
			log.Printf("❌ JWT refusé: %v", err)
			unauthorized(c, "Token is not valid")
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
		"message": msg,
	})
}

// TokenFromQuery recopie ?token= dans l'en-tête Authorization quand il est
// absent. Les navigateurs ne peuvent pas poser d'en-tête sur un websocket.
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query("token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}
