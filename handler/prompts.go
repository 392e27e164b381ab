package handler

import (
	"net/http"

	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// PromptsHandler manages the persisted custom prompt templates
type PromptsHandler struct {
	store *service.PromptStore
}

func NewPromptsHandler(store *service.PromptStore) *PromptsHandler {
	return &PromptsHandler{store: store}
}

// Get returns the active templates and whether they are custom
func (h *PromptsHandler) Get(c *gin.Context) {
	if saved := h.store.Get(); saved != nil {
		pdf := saved.PDF
		if pdf == "" {
			pdf = service.DefaultPDFPrompt
		}
		text := saved.Text
		if text == "" {
			text = service.DefaultTextPrompt
		}
		c.JSON(http.StatusOK, gin.H{"pdf": pdf, "text": text, "custom": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pdf":    service.DefaultPDFPrompt,
		"text":   service.DefaultTextPrompt,
		"custom": false,
	})
}

type savePromptsRequest struct {
	PDF  string `json:"pdf"`
	Text string `json:"text"`
}

// Save stores custom templates; empty fields keep their current value
func (h *PromptsHandler) Save(c *gin.Context) {
	var req savePromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.PDF == "" && req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide at least one template"})
		return
	}

	if err := h.store.Save(req.PDF, req.Text); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save prompts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompts saved"})
}

// Reset restores the built-in templates
func (h *PromptsHandler) Reset(c *gin.Context) {
	if err := h.store.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset prompts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompts reset to defaults"})
}
