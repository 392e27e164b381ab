package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ehagey/cra-legal-matching/model"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// AnalyzeHandler accepts comparison batches and hands them to the
// orchestrator. The archive is optional and may be nil.
type AnalyzeHandler struct {
	orchestrator *service.Orchestrator
	archive      *service.ArchiveService
}

func NewAnalyzeHandler(orchestrator *service.Orchestrator, archive *service.ArchiveService) *AnalyzeHandler {
	return &AnalyzeHandler{
		orchestrator: orchestrator,
		archive:      archive,
	}
}

// Analyze starts an analysis job from a multipart submission:
// clauses and html_links are JSON-encoded string arrays, files are
// uploaded PDFs, pdf_prompt/text_prompt optionally override templates.
// Returns the job id immediately with 202; the work runs asynchronously.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var clauses []string
	if err := json.Unmarshal([]byte(c.PostForm("clauses")), &clauses); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clauses must be a JSON array of strings"})
		return
	}

	var links []string
	if raw := c.PostForm("html_links"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "html_links must be a JSON array of strings"})
			return
		}
	}

	var sources []model.Source
	uploads := make(map[string][]byte)
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file: " + fh.Filename})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file: " + fh.Filename})
				return
			}
			name := fh.Filename
			if name == "" {
				name = "upload.pdf"
			}
			sources = append(sources, model.Source{
				Kind:     model.SourceDocument,
				Filename: name,
				Data:     data,
			})
			uploads[name] = data
		}
	}
	for _, link := range links {
		sources = append(sources, model.Source{
			Kind: model.SourceLink,
			URL:  link,
		})
	}

	var override *service.PromptOverride
	pdfPrompt := c.PostForm("pdf_prompt")
	textPrompt := c.PostForm("text_prompt")
	if pdfPrompt != "" || textPrompt != "" {
		override = &service.PromptOverride{PDF: pdfPrompt, Text: textPrompt}
	}

	jobID, err := h.orchestrator.Submit(clauses, sources, override)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start job"})
		return
	}

	if h.archive != nil && len(uploads) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			h.archive.StoreJobDocuments(ctx, jobID, uploads)
		}()
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// Documents lists the archived uploads of a job with presigned URLs
func (h *AnalyzeHandler) Documents(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document archive is not enabled"})
		return
	}

	docs, err := h.archive.ListJobDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents: " + err.Error()})
		return
	}
	if docs == nil {
		docs = []service.ArchivedDocument{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}
