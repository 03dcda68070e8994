package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/skls"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/generator"
	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/server/dto"
	"github.com/soundprediction/skls/pkg/types"
)

// Service is what the handlers need from *skls.Client.
type Service interface {
	Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error)
	IngestArticle(ctx context.Context, article graph.Article, opts *skls.IngestOptions) (*skls.IngestResult, error)
	DeleteArticle(ctx context.Context, articleID string) (int, error)
	Store() skls.VectorStore
	Embedder() embedder.Client
}

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// writeServiceError maps err to a status and writes it. Server-side failures
// are logged with the request context so telemetry keeps the caller ids.
func writeServiceError(c *gin.Context, log *slog.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "Request failed",
			"path", c.FullPath(),
			"status", status,
			"error", err)
	}
	writeError(c, status, code, err.Error())
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrEmptyID), errors.Is(err, types.ErrEmptyContent):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, generator.ErrGenerationFailed):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
