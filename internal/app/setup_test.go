package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/productapi/internal/config"
	"github.com/abgdnv/productapi/internal/service"
	"github.com/abgdnv/productapi/internal/store"
	"github.com/abgdnv/productapi/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testAPIKey = "test-api-key"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.APIKey = testAPIKey
	cfg.HTTPServer.Port = 3000
	cfg.HTTPServer.MaxBodyBytes = 1 << 20
	cfg.Messaging.PublishTimeout = time.Second
	return cfg
}

func newTestHandler(t *testing.T, repo store.ProductStore) http.Handler {
	t.Helper()
	deps := SetupDependencies(repo, messaging.NopPublisher{}, testConfig(), slog.New(slog.DiscardHandler))
	return SetupHttpHandler(deps, testConfig())
}

func seededStore() store.ProductStore {
	return store.NewInMemoryStore(nil, store.SeedProducts()...)
}

type request struct {
	method string
	path   string
	body   string
	apiKey string
}

func do(t *testing.T, h http.Handler, req request) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if req.body != "" {
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(req.method, req.path, nil)
	}
	if req.apiKey != "" {
		r.Header.Set("x-api-key", req.apiKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func authed(method, path, body string) request {
	return request{method: method, path: path, body: body, apiKey: testAPIKey}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func size(t *testing.T, repo store.ProductStore) int {
	t.Helper()
	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func Test_E2E_Welcome(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	// when
	rr := do(t, h, authed(http.MethodGet, "/", ""))
	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Welcome to the Product API! Go to /api/products to see all products.", rr.Body.String())
}

func Test_E2E_AuthRequiredEverywhere(t *testing.T) {
	testCases := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/"},
		{method: http.MethodGet, path: "/api/products"},
		{method: http.MethodGet, path: "/api/products/search?q=lap"},
		{method: http.MethodGet, path: "/api/products/stats"},
		{method: http.MethodGet, path: "/api/products/1"},
		{method: http.MethodPost, path: "/api/products", body: `{"name":"X","description":"Y","price":1,"category":"Z"}`},
		{method: http.MethodPost, path: "/api/products", body: `{}`},
		{method: http.MethodPut, path: "/api/products/1", body: `{"price":1}`},
		{method: http.MethodDelete, path: "/api/products/1"},
		{method: http.MethodGet, path: "/no/such/route"},
	}

	for _, key := range []string{"", "wrong-key"} {
		for _, tc := range testCases {
			t.Run(fmt.Sprintf("%s %s key=%q", tc.method, tc.path, key), func(t *testing.T) {
				// given
				repo := seededStore()
				h := newTestHandler(t, repo)
				// when
				rr := do(t, h, request{method: tc.method, path: tc.path, body: tc.body, apiKey: key})
				// then
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				assert.Equal(t, "Unauthorized: Invalid API Key", rr.Body.String())
				assert.Equal(t, 3, size(t, repo))
			})
		}
	}
}

func Test_E2E_CreateThenGet(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	body := `{"name":"Kettle","description":"Electric kettle","price":35.5,"category":"kitchen","inStock":true}`
	// when
	created := do(t, h, authed(http.MethodPost, "/api/products", body))
	// then
	require.Equal(t, http.StatusCreated, created.Code)
	product := decode[service.ProductDto](t, created)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Kettle", product.Name)
	assert.Equal(t, 35.5, product.Price)
	require.NotNil(t, product.InStock)
	assert.True(t, *product.InStock)

	found := do(t, h, authed(http.MethodGet, "/api/products/"+product.ID, ""))
	require.Equal(t, http.StatusOK, found.Code)
	assert.Equal(t, product, decode[service.ProductDto](t, found))
}

func Test_E2E_CreateRejectsInvalidProduct(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		expectedFields map[string]string
	}{
		{
			name:           "missing name",
			body:           `{"description":"Y","price":1,"category":"Z"}`,
			expectedFields: map[string]string{"name": "failed on rule: required"},
		},
		{
			name:           "empty name",
			body:           `{"name":"","description":"Y","price":1,"category":"Z"}`,
			expectedFields: map[string]string{"name": "failed on rule: required"},
		},
		{
			name:           "price is a string",
			body:           `{"name":"X","description":"Y","price":"cheap","category":"Z"}`,
			expectedFields: map[string]string{"price": "failed on rule: number"},
		},
		{
			name: "empty object",
			body: `{}`,
			expectedFields: map[string]string{
				"name":        "failed on rule: required",
				"description": "failed on rule: required",
				"price":       "failed on rule: required",
				"category":    "failed on rule: required",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			repo := seededStore()
			h := newTestHandler(t, repo)
			// when
			rr := do(t, h, authed(http.MethodPost, "/api/products", tc.body))
			// then
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decode[struct {
				Error            string            `json:"error"`
				ValidationErrors map[string]string `json:"validation_errors"`
			}](t, rr)
			assert.Equal(t, "Invalid product data", resp.Error)
			assert.Equal(t, tc.expectedFields, resp.ValidationErrors)
			assert.Equal(t, 3, size(t, repo))
		})
	}
}

func Test_E2E_CreateWithoutBody(t *testing.T) {
	// given
	repo := seededStore()
	h := newTestHandler(t, repo)
	// when
	rr := do(t, h, authed(http.MethodPost, "/api/products", ""))
	// then
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "validation_errors")
	assert.Equal(t, 3, size(t, repo))
}

func Test_E2E_MalformedBody(t *testing.T) {
	for _, body := range []string{`{"name":`, `[1,2]`, `"text"`, `42`} {
		t.Run(body, func(t *testing.T) {
			// given
			repo := seededStore()
			h := newTestHandler(t, repo)
			// when
			rr := do(t, h, authed(http.MethodPost, "/api/products", body))
			// then
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "Invalid JSON", rr.Body.String())
			assert.Equal(t, 3, size(t, repo))
		})
	}
}

func Test_E2E_Update(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	body := `{"name":"Laptop","description":"High-performance laptop with 16GB RAM","price":999,"category":"electronics"}`
	// when
	rr := do(t, h, authed(http.MethodPut, "/api/products/1", body))
	// then
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decode[service.ProductDto](t, rr)
	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, 999.0, updated.Price)
	assert.Equal(t, "Laptop", updated.Name)
	assert.Equal(t, "High-performance laptop with 16GB RAM", updated.Description)
	assert.Equal(t, "electronics", updated.Category)
	require.NotNil(t, updated.InStock, "fields not sent are kept")
	assert.True(t, *updated.InStock)

	list := decode[service.ProductPage](t, do(t, h, authed(http.MethodGet, "/api/products", "")))
	assert.Equal(t, "1", list.Products[0].ID, "position is kept")
}

func Test_E2E_UpdateMissingNameLeavesProductUntouched(t *testing.T) {
	// given
	repo := seededStore()
	h := newTestHandler(t, repo)
	before, err := repo.FindByID(context.Background(), "2")
	require.NoError(t, err)
	// when
	rr := do(t, h, authed(http.MethodPut, "/api/products/2", `{"description":"d","price":1,"category":"c"}`))
	// then
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	after, err := repo.FindByID(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func Test_E2E_NotFound(t *testing.T) {
	body := `{"name":"X","description":"Y","price":1,"category":"Z"}`
	testCases := []request{
		authed(http.MethodGet, "/api/products/42", ""),
		authed(http.MethodPut, "/api/products/42", body),
		authed(http.MethodDelete, "/api/products/42", ""),
	}
	for _, req := range testCases {
		t.Run(req.method, func(t *testing.T) {
			// given
			h := newTestHandler(t, seededStore())
			// when
			rr := do(t, h, req)
			// then
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.JSONEq(t, `{"error":"Product not found"}`, rr.Body.String())
		})
	}
}

func Test_E2E_DeleteThenGet(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	// when
	rr := do(t, h, authed(http.MethodDelete, "/api/products/2", ""))
	// then
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, h, authed(http.MethodGet, "/api/products/2", "")).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, authed(http.MethodDelete, "/api/products/2", "")).Code)
}

func Test_E2E_List(t *testing.T) {
	testCases := []struct {
		name          string
		query         string
		expectedPage  int
		expectedLimit int
		expectedTotal int
		expectedIDs   []string
	}{
		{name: "defaults", query: "", expectedPage: 1, expectedLimit: 10, expectedTotal: 3, expectedIDs: []string{"1", "2", "3"}},
		{name: "second page of one", query: "?page=2&limit=1", expectedPage: 2, expectedLimit: 1, expectedTotal: 3, expectedIDs: []string{"2"}},
		{name: "category filter", query: "?category=electronics", expectedPage: 1, expectedLimit: 10, expectedTotal: 2, expectedIDs: []string{"1", "2"}},
		{name: "category and page", query: "?category=electronics&page=2&limit=1", expectedPage: 2, expectedLimit: 1, expectedTotal: 2, expectedIDs: []string{"2"}},
		{name: "unknown category", query: "?category=garden", expectedPage: 1, expectedLimit: 10, expectedTotal: 0, expectedIDs: []string{}},
		{name: "past the end", query: "?page=9", expectedPage: 9, expectedLimit: 10, expectedTotal: 3, expectedIDs: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newTestHandler(t, seededStore())
			// when
			rr := do(t, h, authed(http.MethodGet, "/api/products"+tc.query, ""))
			// then
			require.Equal(t, http.StatusOK, rr.Code)
			page := decode[service.ProductPage](t, rr)
			assert.Equal(t, tc.expectedPage, page.Page)
			assert.Equal(t, tc.expectedLimit, page.Limit)
			assert.Equal(t, tc.expectedTotal, page.Total)
			require.NotNil(t, page.Products)
			ids := make([]string, 0, len(page.Products))
			for _, p := range page.Products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func Test_E2E_ListRejectsBadPaging(t *testing.T) {
	for _, query := range []string{"?page=0", "?limit=-1", "?page=abc", "?limit=2.5"} {
		t.Run(query, func(t *testing.T) {
			// given
			h := newTestHandler(t, seededStore())
			// when
			rr := do(t, h, authed(http.MethodGet, "/api/products"+query, ""))
			// then
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "validation_errors")
		})
	}
}

func Test_E2E_Search(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	// when
	rr := do(t, h, authed(http.MethodGet, "/api/products/search?q=lap", ""))
	// then
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[[]service.ProductDto](t, rr)
	require.Len(t, found, 1)
	assert.Equal(t, "Laptop", found[0].Name)

	empty := do(t, h, authed(http.MethodGet, "/api/products/search?q=tablet", ""))
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `[]`, empty.Body.String())
}

func Test_E2E_SearchWithoutQuery(t *testing.T) {
	for _, path := range []string{"/api/products/search", "/api/products/search?q="} {
		// given
		h := newTestHandler(t, seededStore())
		// when
		rr := do(t, h, authed(http.MethodGet, path, ""))
		// then
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, `Query parameter "q" is required`, rr.Body.String())
	}
}

func Test_E2E_Stats(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	// when
	rr := do(t, h, authed(http.MethodGet, "/api/products/stats", ""))
	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"electronics":2,"kitchen":1}`, rr.Body.String())
}

func Test_E2E_UnknownRouteAndMethod(t *testing.T) {
	// given
	h := newTestHandler(t, seededStore())
	// when
	unknown := do(t, h, authed(http.MethodGet, "/no/such/route", ""))
	wrongMethod := do(t, h, authed(http.MethodPatch, "/api/products/1", ""))
	// then
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Contains(t, unknown.Body.String(), `"error"`)
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.Code)
}

func Test_E2E_ConcurrentCreatesHaveUniqueIDs(t *testing.T) {
	// given
	const workers = 50
	repo := seededStore()
	h := newTestHandler(t, repo)
	var mu sync.Mutex
	seen := make(map[string]struct{}, workers)
	// when
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			body := fmt.Sprintf(`{"name":"P%d","description":"d","price":%d,"category":"bulk"}`, i, i)
			rr := do(t, h, authed(http.MethodPost, "/api/products", body))
			if rr.Code != http.StatusCreated {
				return fmt.Errorf("unexpected status %d", rr.Code)
			}
			var p service.ProductDto
			if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, dup := seen[p.ID]; dup {
				return fmt.Errorf("duplicate id %s", p.ID)
			}
			seen[p.ID] = struct{}{}
			return nil
		})
	}
	// then
	require.NoError(t, g.Wait())
	assert.Len(t, seen, workers)
	assert.Equal(t, 3+workers, size(t, repo))
}

// brokenStore fails reads with err, or panics when err is nil
type brokenStore struct {
	store.ProductStore
	err error
}

func (b brokenStore) FindAll(context.Context) ([]store.Product, error) {
	if b.err == nil {
		panic("store exploded")
	}
	return nil, b.err
}

func Test_E2E_InternalErrorsAreNotLeaked(t *testing.T) {
	testCases := []struct {
		name string
		repo store.ProductStore
	}{
		{name: "store error", repo: brokenStore{ProductStore: seededStore(), err: errors.New("disk on fire")}},
		{name: "panic", repo: brokenStore{ProductStore: seededStore()}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newTestHandler(t, tc.repo)
			// when
			rr := do(t, h, authed(http.MethodGet, "/api/products/stats", ""))
			// then
			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"error":"Internal Server Error"}`, rr.Body.String())
		})
	}
}

func Test_SetupHttpServer(t *testing.T) {
	// given
	cfg := testConfig()
	cfg.HTTPServer.Timeout.Read = 5 * time.Second
	deps := SetupDependencies(seededStore(), nil, cfg, slog.New(slog.DiscardHandler))
	// when
	srv := SetupHttpServer(deps, cfg)
	// then
	assert.Equal(t, ":3000", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.NotNil(t, srv.Handler)
}
