// Package server exposes the extraction pipeline over HTTP for the
// wishlist application's item-creation dialog.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wishr/metaext/pkg/extractor"
)

// Extractor is the part of the pipeline the HTTP layer calls.
type Extractor interface {
	Extract(ctx context.Context, rawURL string, opts extractor.Options) extractor.Result
}

// Handler holds the HTTP layer's dependencies.
type Handler struct {
	extractor Extractor
	log       *logrus.Logger
}

func NewHandler(e Extractor, log *logrus.Logger) *Handler {
	return &Handler{extractor: e, log: log}
}

type extractRequest struct {
	URL string `json:"url" binding:"required"`
}

// ExtractMetadata resolves product metadata for the submitted URL. The
// pipeline is total, so the endpoint answers 200 with a complete result
// for every well-formed request body; rejected or unreachable URLs come
// back as empty results with both validity flags false.
func (h *Handler) ExtractMetadata(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a url field"})
		return
	}

	start := time.Now()
	result := h.extractor.Extract(c.Request.Context(), req.URL, extractor.Options{
		ClientUserAgent: c.Request.UserAgent(),
	})
	h.log.WithFields(logrus.Fields{
		"url":         req.URL,
		"title_valid": result.IsTitleValid,
		"image_valid": result.IsImageValid,
		"elapsed":     time.Since(start).Round(time.Millisecond).String(),
	}).Info("extraction served")

	c.JSON(http.StatusOK, result)
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "metaext",
	})
}
