package shop

import (
	"fmt"
	"path/filepath"
	"strings"

	"fertilizer_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxReviewImages   = 5
	MaxImageSize      = 5 << 20
	MinPasswordLength = 6
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// ParseID convertit un identifiant hexadécimal fourni par le client.
func ParseID(field, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, validationError(fmt.Sprintf("Invalid %s", field))
	}
	return id, nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return validationError("Quantity must be at least 1")
	}
	return nil
}

func validateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return validationError("Rating must be between 1 and 5")
	}
	return nil
}

// NormalizePaymentMethod met le moyen de paiement en majuscules,
// CARD par défaut quand il est absent ou inconnu.
func NormalizePaymentMethod(method string) string {
	switch m := strings.ToUpper(strings.TrimSpace(method)); m {
	case models.PaymentCOD, models.PaymentCard, models.PaymentUPI:
		return m
	default:
		return models.PaymentCard
	}
}

func validateUploads(uploads []Upload) error {
	if len(uploads) > MaxReviewImages {
		return validationError(fmt.Sprintf("You can upload at most %d images", MaxReviewImages))
	}
	for _, up := range uploads {
		if !allowedImageExt[strings.ToLower(filepath.Ext(up.Filename))] {
			return validationError("Only image files are allowed!")
		}
		if up.Size > MaxImageSize {
			return validationError("Image size must not exceed 5MB")
		}
	}
	return nil
}
