package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/docpipe/internal/logger"
	"github.com/timmy/docpipe/internal/pipeline"
)

// DocumentHandler exposes the pipeline stages over HTTP. Each stage is its
// own endpoint; the client drives the sequence and polls status in between.
type DocumentHandler struct {
	pipeline *pipeline.Service
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - svc: pipeline service instance.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(svc *pipeline.Service) *DocumentHandler {
	return &DocumentHandler{pipeline: svc}
}

// stageRequest is the shared request body of the process endpoints.
type stageRequest struct {
	DocumentID string `json:"documentId"`
}

// respondError maps pipeline errors onto the response envelope. Every error
// response carries an {error: message} body.
func respondError(c *gin.Context, err error) {
	var verr *pipeline.ValidationError
	var perr *pipeline.PreconditionError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrConflict):
		// Retryable: the caller should re-query status and resume from there
		status = http.StatusConflict
	case errors.As(err, &perr):
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// bindStageRequest parses the stage request body and tags the request
// context with the document ID for downstream logging.
func bindStageRequest(c *gin.Context) (string, bool) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DocumentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId is required"})
		return "", false
	}
	ctx := logger.SetDocumentID(c.Request.Context(), req.DocumentID)
	c.Request = c.Request.WithContext(ctx)
	return req.DocumentID, true
}

// CreateUpload handles POST /api/v1/upload.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DocumentHandler) CreateUpload(c *gin.Context) {
	var req pipeline.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.pipeline.CreateUpload(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExtractText handles POST /api/v1/process/ocr.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DocumentHandler) ExtractText(c *gin.Context) {
	documentID, ok := bindStageRequest(c)
	if !ok {
		return
	}

	result, err := h.pipeline.Extract(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"ocrResults": result,
	})
}

// Classify handles POST /api/v1/process/classify.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DocumentHandler) Classify(c *gin.Context) {
	documentID, ok := bindStageRequest(c)
	if !ok {
		return
	}

	classification, err := h.pipeline.Classify(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"classification": classification,
	})
}

// Summarize handles POST /api/v1/process/summarize.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DocumentHandler) Summarize(c *gin.Context) {
	documentID, ok := bindStageRequest(c)
	if !ok {
		return
	}

	summary, err := h.pipeline.Summarize(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// Status handles GET /api/v1/status/:documentId.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DocumentHandler) Status(c *gin.Context) {
	documentID := c.Param("documentId")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId is required"})
		return
	}

	view, err := h.pipeline.Status(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
