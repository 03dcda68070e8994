package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/server/dto"
	"github.com/soundprediction/skls/pkg/vectorstore"
)

// RetrieveHandler handles data retrieval requests
type RetrieveHandler struct {
	svc Service
	log *slog.Logger
}

// NewRetrieveHandler creates a new retrieve handler
func NewRetrieveHandler(svc Service) *RetrieveHandler {
	return &RetrieveHandler{svc: svc, log: logger.Get("server")}
}

// Search handles POST /api/v1/search
func (h *RetrieveHandler) Search(c *gin.Context) {
	var req dto.SearchQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TopK <= 0 {
		req.TopK = vectorstore.DefaultTopK
	}

	results, err := h.svc.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSearchResults(results))
}

// ListCollections handles GET /api/v1/collections
func (h *RetrieveHandler) ListCollections(c *gin.Context) {
	names, err := h.svc.Store().ListCollections(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, dto.CollectionsResponse{Collections: names})
}
