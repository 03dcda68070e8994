package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/skls"
	"github.com/soundprediction/skls/pkg/config"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/telemetry"
	"github.com/soundprediction/skls/pkg/types"
)

func testConfig(host string, port int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: host,
			Port: port,
			Mode: gin.TestMode,
		},
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig("localhost", 8080)

	// Test with nil client (server should still be created)
	server := New(cfg, nil)
	if server == nil {
		t.Fatal("expected non-nil server")
	}

	if server.config != cfg {
		t.Error("expected config to be set")
	}
}

func TestSetup(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	if server.Router() == nil {
		t.Error("expected router to be initialized")
	}

	if server.server == nil {
		t.Error("expected http.Server to be initialized")
	}

	expectedAddr := "localhost:8080"
	if server.server.Addr != expectedAddr {
		t.Errorf("expected addr %s, got %s", expectedAddr, server.server.Addr)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	for _, path := range []string{"/health", "/live"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}
		})
	}
}

func TestReadyEndpointWithoutClient(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", w.Code)
	}

	expectedHeaders := []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Credentials",
		"Access-Control-Allow-Headers",
		"Access-Control-Allow-Methods",
	}
	for _, header := range expectedHeaders {
		if w.Header().Get(header) == "" {
			t.Errorf("expected %s header to be set", header)
		}
	}
}

func TestContextMiddleware(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	var userID, sessionID, source any
	server.router.GET("/whoami", func(c *gin.Context) {
		ctx := c.Request.Context()
		userID = ctx.Value(types.ContextKeyUserID)
		sessionID = ctx.Value(types.ContextKeySessionID)
		source = ctx.Value(types.ContextKeyRequestSource)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "test-user")
	req.Header.Set("X-Session-ID", "test-session")
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if userID != "test-user" {
		t.Errorf("expected user id test-user, got %v", userID)
	}
	if sessionID != "test-session" {
		t.Errorf("expected session id test-session, got %v", sessionID)
	}
	if source != "server" {
		t.Errorf("expected request source server, got %v", source)
	}
}

func TestRouteExists(t *testing.T) {
	server := New(testConfig("localhost", 8080), nil)
	server.Setup()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/ready"},
		{http.MethodGet, "/live"},
		// API routes (reject the empty body but must not be 404)
		{http.MethodPost, "/api/v1/embed"},
		{http.MethodPost, "/api/v1/chunks"},
		{http.MethodPost, "/api/v1/articles"},
		{http.MethodPost, "/api/v1/search"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code == http.StatusNotFound {
				t.Errorf("route %s %s returned 404, route not registered", route.method, route.path)
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name         string
		host         string
		port         int
		expectedAddr string
	}{
		{"localhost:8090", "localhost", 8090, "localhost:8090"},
		{"0.0.0.0:3000", "0.0.0.0", 3000, "0.0.0.0:3000"},
		{"127.0.0.1:9090", "127.0.0.1", 9090, "127.0.0.1:9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(testConfig(tt.host, tt.port), nil)
			server.Setup()

			if server.server.Addr != tt.expectedAddr {
				t.Errorf("expected addr %s, got %s", tt.expectedAddr, server.server.Addr)
			}
		})
	}
}

// failingService fails every search as if the vector store were down.
type failingService struct{}

func (failingService) Search(context.Context, string, int) ([]types.SearchResult, error) {
	return nil, errors.New("chroma unavailable")
}

func (failingService) IngestArticle(context.Context, graph.Article, *skls.IngestOptions) (*skls.IngestResult, error) {
	return nil, errors.New("chroma unavailable")
}

func (failingService) DeleteArticle(context.Context, string) (int, error) {
	return 0, errors.New("chroma unavailable")
}

func (failingService) Store() skls.VectorStore    { return nil }
func (failingService) Embedder() embedder.Client { return nil }

func TestErrorTelemetryCarriesRequestIDs(t *testing.T) {
	dir := t.TempDir()
	ph, err := telemetry.NewParquetHandler(slog.NewTextHandler(io.Discard, nil), dir)
	if err != nil {
		t.Fatal(err)
	}
	logger.SetCustom(slog.New(ph), "")
	t.Cleanup(func() { logger.ResetCustom("") })

	server := New(testConfig("localhost", 8080), failingService{})
	server.Setup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"summit"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-7")
	req.Header.Set("X-Session-ID", "session-3")
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if err := ph.Flush(); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one telemetry file, got %v (%v)", files, err)
	}
	rows, err := parquet.ReadFile[telemetry.LogRecord](files[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one error record, got %d", len(rows))
	}
	if rows[0].UserID != "user-7" {
		t.Errorf("expected user id user-7, got %q", rows[0].UserID)
	}
	if rows[0].SessionID != "session-3" {
		t.Errorf("expected session id session-3, got %q", rows[0].SessionID)
	}
	if rows[0].RequestSource != "server" {
		t.Errorf("expected request source server, got %q", rows[0].RequestSource)
	}
	if !strings.Contains(rows[0].Attributes, "chroma unavailable") {
		t.Errorf("expected error in attributes, got %s", rows[0].Attributes)
	}
}
