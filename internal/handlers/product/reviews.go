package product

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/shop"
	"fertilizer_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// imagesField est le champ multipart des photos d'avis.
const imagesField = "images"

type ReviewHandler struct {
	reviews *shop.Reviews
	audit   utils.Auditor
}

func NewReviewHandler(reviews *shop.Reviews, audit utils.Auditor) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, audit: audit}
}

// GET /api/reviews/product/:productId?page=&limit=
func (h *ReviewHandler) GetProductReviews(c *gin.Context) {
	productID, ok := handlers.PathID(c, "productId", "productId")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := handlers.Context(c)
	defer cancel()

	res, err := h.reviews.ListForProduct(ctx, productID, page, limit)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(res.Reviews),
		"total":   res.Total,
		"page":    res.Page,
		"pages":   res.Pages,
		"data":    res.Reviews,
	})
}

// CreateReview crée un avis sur un produit (multipart, champ "images")
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	uploads, ok := formUploads(c)
	if !ok {
		return
	}
	input := shop.ReviewInput{
		Product: c.PostForm("product"),
		Title:   c.PostForm("title"),
		Comment: c.PostForm("comment"),
	}
	if raw := strings.TrimSpace(c.PostForm("rating")); raw != "" {
		input.Rating = parseRating(raw)
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	review, err := h.reviews.Create(ctx, userID, input, uploads)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionReviewCreate, utils.ResourceReview, review.ID.Hex())
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": review})
}

// UpdateReview modifie un avis. Les champs absents restent inchangés.
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	reviewID, ok := handlers.PathID(c, "id", "review id")
	if !ok {
		return
	}
	uploads, ok := formUploads(c)
	if !ok {
		return
	}

	var changes shop.ReviewChanges
	if raw, present := c.GetPostForm("rating"); present && strings.TrimSpace(raw) != "" {
		rating := parseRating(raw)
		changes.Rating = &rating
	}
	if title, present := c.GetPostForm("title"); present {
		changes.Title = &title
	}
	if comment, present := c.GetPostForm("comment"); present {
		changes.Comment = &comment
	}

	ctx, cancel := handlers.Context(c)
	defer cancel()

	review, err := h.reviews.Update(ctx, userID, reviewID, changes, uploads)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionReviewUpdate, utils.ResourceReview, reviewID.Hex())
	c.JSON(http.StatusOK, gin.H{"success": true, "data": review})
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	reviewID, ok := handlers.PathID(c, "id", "review id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	if err := h.reviews.Delete(ctx, userID, reviewID); err != nil {
		handlers.RespondError(c, err)
		return
	}
	utils.LogAction(h.audit, c, utils.ActionReviewDelete, utils.ResourceReview, reviewID.Hex())
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *ReviewHandler) ToggleLike(c *gin.Context) {
	userID, ok := handlers.CurrentUserID(c)
	if !ok {
		return
	}
	reviewID, ok := handlers.PathID(c, "id", "review id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Context(c)
	defer cancel()

	state, err := h.reviews.ToggleLike(ctx, userID, reviewID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": state})
}

// formUploads lit les fichiers du champ "images". Une requête sans
// multipart n'a simplement pas de fichiers.
func formUploads(c *gin.Context) ([]shop.Upload, bool) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	if err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}

	files := form.File[imagesField]
	uploads := make([]shop.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, toUpload(fh))
	}
	return uploads, true
}

func toUpload(fh *multipart.FileHeader) shop.Upload {
	return shop.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// parseRating renvoie -1 pour une valeur non numérique, rejetée ensuite
// par la validation.
func parseRating(raw string) int {
	rating, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return rating
}
