package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/skls"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/server/dto"
)

// IngestHandler handles embedding and storage requests
type IngestHandler struct {
	svc Service
	log *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(svc Service) *IngestHandler {
	return &IngestHandler{svc: svc, log: logger.Get("server")}
}

// Embed handles POST /api/v1/embed
func (h *IngestHandler) Embed(c *gin.Context) {
	var req dto.EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	emb := h.svc.Embedder()
	if emb == nil {
		writeError(c, http.StatusServiceUnavailable, "unavailable", "no embedder configured")
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = embedder.DefaultBatchSize
	}

	vectors, err := emb.EmbedTexts(c.Request.Context(), req.Texts, req.BatchSize)
	if err != nil && len(vectors) == 0 {
		writeServiceError(c, h.log, err)
		return
	}
	if err != nil {
		h.log.WarnContext(c.Request.Context(), "Some texts failed to embed", "error", err)
	}
	c.JSON(http.StatusOK, dto.EmbedResponse{Embeddings: vectors})
}

// StoreChunk handles POST /api/v1/chunks
func (h *IngestHandler) StoreChunk(c *gin.Context) {
	var req dto.StoreChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := h.svc.Store().StoreChunk(c.Request.Context(), req.Text, req.Metadata, req.ID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.StoreChunkResponse{ID: id})
}

// IngestArticle handles POST /api/v1/articles
func (h *IngestHandler) IngestArticle(c *gin.Context) {
	var req dto.IngestArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.svc.IngestArticle(c.Request.Context(), req.Article(), &skls.IngestOptions{
		MaxChunkChars: req.MaxChunkChars,
		SkipGraph:     req.SkipGraph,
	})
	if err != nil {
		status, code := statusFor(err)
		if errors.Is(err, skls.ErrNoGenerator) {
			status, code = http.StatusServiceUnavailable, "unavailable"
		}
		h.log.ErrorContext(c.Request.Context(), "Article ingestion failed", "name", req.Name, "error", err)
		writeError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.IngestArticleResponse{
		ArticleID:     res.ArticleID,
		StoredChunks:  res.StoredChunks,
		SkippedChunks: res.SkippedChunks,
		Graph:         res.Graph,
	})
}

// DeleteDocument handles DELETE /api/v1/documents/:id
func (h *IngestHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}

	n, err := h.svc.DeleteArticle(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteDocumentResponse{DocID: id, DeletedChunks: n})
}
