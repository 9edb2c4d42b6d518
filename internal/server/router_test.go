package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/briefbase/internal/api/handlers"
	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) RegisterDocument(ctx context.Context, input service.RegisterDocumentInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListDocuments(ctx context.Context, tenantID, cursor string, limit int) (*service.DocumentPageResult, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPageResult), args.Error(1)
}

func (m *MockDocumentService) DeleteDocument(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockRetrieverService struct {
	mock.Mock
}

func (m *MockRetrieverService) Retrieve(ctx context.Context, query string, opts service.RetrieveOptions) (*domain.RAGResult, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RAGResult), args.Error(1)
}

func (m *MockRetrieverService) HybridSearch(ctx context.Context, query string, opts service.RetrieveOptions) (*domain.RAGResult, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RAGResult), args.Error(1)
}

func setupRouter() (http.Handler, *MockDocumentService, *MockRetrieverService) {
	docSvc := new(MockDocumentService)
	retriever := new(MockRetrieverService)

	cfg := RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
		QueryHandler:    handlers.NewQueryHandler(retriever, nil),
	}

	router := NewRouter(cfg)
	return router, docSvc, retriever
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_TenantRoutes_RequireHeader(t *testing.T) {
	router, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/123"},
		{http.MethodPost, "/documents"},
		{http.MethodDelete, "/documents/123"},
		{http.MethodPost, "/query"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "X-Tenant-ID")
		})
	}
}

func TestRouter_Documents_WithTenantHeader(t *testing.T) {
	router, docSvc, _ := setupRouter()

	expected := &domain.Document{
		ID:         "doc-123",
		TenantID:   "tenant-1",
		Name:       "notes.txt",
		SourceType: domain.SourceTypeDocument,
		Status:     domain.DocumentStatusProcessed,
		Content:    "content",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	docSvc.On("GetDocument", mock.Anything, "tenant-1", "doc-123").Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-123", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestRouter_Query_WithTenantHeader(t *testing.T) {
	router, _, retriever := setupRouter()

	result := &domain.RAGResult{Query: "q", Chunks: []*domain.RetrievedChunk{}, TotalTokens: 1}
	retriever.On("Retrieve", mock.Anything, "release plan", mock.MatchedBy(func(opts service.RetrieveOptions) bool {
		return opts.TenantID == "tenant-1"
	})).Return(result, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"release plan"}`))
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	retriever.AssertExpectations(t)
}
