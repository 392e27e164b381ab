package handler

import (
	"errors"
	"net/http"

	"github.com/ehagey/cra-legal-matching/model"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// PreviewHandler lets the client inspect what a link resolves to before
// submitting it in a batch.
type PreviewHandler struct {
	loader *service.LoaderService
}

func NewPreviewHandler(loader *service.LoaderService) *PreviewHandler {
	return &PreviewHandler{loader: loader}
}

// Preview scrapes one link and returns the derived display name plus the
// extracted text.
func (h *PreviewHandler) Preview(c *gin.Context) {
	link := c.PostForm("html_link")
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "html_link is required"})
		return
	}

	payload, err := h.loader.Resolve(c.Request.Context(), model.Source{
		Kind: model.SourceLink,
		URL:  link,
	})
	if err != nil {
		var lerr *model.LoadError
		if errors.As(err, &lerr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": lerr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process HTML link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"display_name": payload.DisplayName,
		"content":      payload.Text,
	})
}
