package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"fertilizer_back_end/internal/shop"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const serverErrorMessage = "Server error"

// RequestTimeout borne les accès aux stores pendant une requête.
const RequestTimeout = 10 * time.Second

func Context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

// RespondError traduit une erreur métier en réponse JSON. Les erreurs
// internes sont journalisées et masquées au client.
func RespondError(c *gin.Context, err error) {
	var shopErr *shop.Error
	if !errors.As(err, &shopErr) {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		Fail(c, http.StatusInternalServerError, serverErrorMessage)
		return
	}
	Fail(c, StatusFor(shopErr.Kind), shopErr.Message)
}

// StatusFor donne le statut HTTP d'une catégorie d'erreur.
func StatusFor(kind error) int {
	switch {
	case errors.Is(kind, shop.ErrValidation), errors.Is(kind, shop.ErrConflict), errors.Is(kind, shop.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(kind, shop.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, shop.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, shop.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Fail écrit le corps d'erreur commun. "error" et "message" portent le même
// texte pour les deux styles de client.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"message": msg,
	})
}

// CurrentUserID lit l'utilisateur posé par middleware.AuthRequired.
// Répond 401 et renvoie false s'il est absent ou invalide.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		Fail(c, http.StatusUnauthorized, "Token is not valid")
		return primitive.NilObjectID, false
	}
	return id, true
}

// PathID lit un identifiant de l'URL. Répond 400 s'il est mal formé.
func PathID(c *gin.Context, param, field string) (primitive.ObjectID, bool) {
	id, err := shop.ParseID(field, c.Param(param))
	if err != nil {
		RespondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}
