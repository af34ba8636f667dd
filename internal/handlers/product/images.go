package product

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"

	"fertilizer_back_end/internal/handlers"
	"fertilizer_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// ObjectOpener lit un objet du stockage.
type ObjectOpener interface {
	Open(ctx context.Context, name string) (*services.Object, error)
}

type ImageHandler struct {
	files ObjectOpener
}

func NewImageHandler(files ObjectOpener) *ImageHandler {
	return &ImageHandler{files: files}
}

// GET /uploads/reviews/:name
// Sert une photo d'avis depuis MinIO.
func (h *ImageHandler) ServeReviewImage(c *gin.Context) {
	name := path.Base(c.Param("name"))
	if name == "." || name == "/" || name == ".." {
		handlers.Fail(c, http.StatusNotFound, "Image not found")
		return
	}

	obj, err := h.files.Open(c.Request.Context(), name)
	if errors.Is(err, services.ErrObjectNotFound) {
		handlers.Fail(c, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		log.Printf("❌ Lecture image %s: %v", name, err)
		handlers.Fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control": fmt.Sprintf("public, max-age=%d", 86400),
	})
}
