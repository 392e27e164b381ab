package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports whether the analysis backend is usable
type HealthHandler struct {
	config   *config.Config
	analyzer *service.AnalyzerService
}

func NewHealthHandler(cfg *config.Config, analyzer *service.AnalyzerService) *HealthHandler {
	return &HealthHandler{config: cfg, analyzer: analyzer}
}

// Health reports configuration validity and, with ?probe=true, whether the
// analysis endpoint is reachable. Consumed by the deployment harness.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"model":  h.config.OpenRouter.Model,
	}

	if err := h.config.Validate(); err != nil {
		resp["status"] = "misconfigured"
		resp["error"] = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}

	if c.Query("probe") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.analyzer.Ping(ctx); err != nil {
			resp["status"] = "unreachable"
			resp["error"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, resp)
}
