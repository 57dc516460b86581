package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/xid"
)

type captured struct {
	mu      sync.Mutex
	queries []string
	headers []http.Header
}

func (c *captured) record(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, r.URL.RawQuery)
	c.headers = append(c.headers, r.Header.Clone())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func fakeAPI(t *testing.T, seen *captured) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v1/brands", func(w http.ResponseWriter, r *http.Request) {
		seen.record(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{{"id": 1, "name": "Aqua"}, {"id": 2, "name": "Indomie"}},
			"pagination": map[string]any{
				"current_page": 2, "last_page": 3, "per_page": 2, "total": 6,
			},
		})
	})
	r.Get("/v1/staff", func(w http.ResponseWriter, r *http.Request) {
		seen.record(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{"id": 5, "name": "Siti"}},
			"meta": map[string]any{"current_page": 1, "per_page": 10, "total": 1},
		})
	})
	r.Get("/v1/expenses", func(w http.ResponseWriter, r *http.Request) {
		seen.record(r)
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "store access denied"})
	})
	r.Get("/v1/stores", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})
	r.Get("/v1/purchase-dues", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func screen(t *testing.T, name string) *screens.Screen {
	t.Helper()
	s, err := screens.Builtin().Get(name)
	require.NoError(t, err)
	return s
}

func TestListSendsParamsAndCredentials(t *testing.T) {
	seen := &captured{}
	srv := fakeAPI(t, seen)
	c := New(srv.URL+"/v1/", "tok-123")

	ctx := xid.WithRequestID(context.Background(), "req-abc")
	page, err := c.List(ctx, screen(t, "brands"), query.Params{"search": {"kopi"}, "store_id": {"7"}, "page": {"2"}})
	require.NoError(t, err)

	require.Len(t, seen.queries, 1)
	assert.Equal(t, "page=2&search=kopi&store_id=7", seen.queries[0])
	assert.Equal(t, "Bearer tok-123", seen.headers[0].Get("Authorization"))
	assert.Equal(t, "req-abc", seen.headers[0].Get("X-Request-ID"))

	require.Len(t, page.Items, 2)
	assert.Equal(t, "Aqua", page.Items[0]["name"])
	assert.Equal(t, 3, page.Pagination.LastPage)
	assert.Equal(t, 6, page.Pagination.Total)
}

func TestListAcceptsDataMetaShape(t *testing.T) {
	srv := fakeAPI(t, &captured{})
	c := New(srv.URL+"/v1", "")

	page, err := c.List(context.Background(), screen(t, "staff"), query.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Pagination.LastPage)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListSurfacesAPIErrors(t *testing.T) {
	srv := fakeAPI(t, &captured{})
	c := New(srv.URL+"/v1", "")

	_, err := c.List(context.Background(), screen(t, "expenses"), query.Params{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "store access denied", apiErr.Message)

	_, err = c.List(context.Background(), screen(t, "stores"), query.Params{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.Equal(t, "HTTP 502: upstream unavailable", apiErr.Error())
}

func TestListHonoursContextCancel(t *testing.T) {
	srv := fakeAPI(t, &captured{})
	c := New(srv.URL+"/v1", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.List(ctx, screen(t, "purchase_dues"), query.Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitWaitRespectsContext(t *testing.T) {
	srv := fakeAPI(t, &captured{})
	c := New(srv.URL+"/v1", "", WithRateLimit(0.001, 1))

	_, err := c.List(context.Background(), screen(t, "brands"), query.Params{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.List(ctx, screen(t, "brands"), query.Params{})
	assert.Error(t, err)
}
