package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
)

func screen(t *testing.T, name string) *screens.Screen {
	t.Helper()
	s, err := screens.Builtin().Get(name)
	require.NoError(t, err)
	return s
}

func staffStore() *Store {
	s := New()
	s.Put("staff",
		domain.Record{"id": int64(1), "store_id": int64(7), "name": "Budi", "email": "budi@x.id", "role": "admin", "status": "active", "created_at": "2024-05-01 10:00:00"},
		domain.Record{"id": int64(2), "store_id": int64(7), "name": "Siti", "email": "siti@x.id", "role": "cashier", "status": "active", "created_at": "2024-05-10 10:00:00"},
		domain.Record{"id": int64(3), "store_id": int64(9), "name": "Agus", "email": "agus@x.id", "role": "manager", "status": "inactive", "created_at": "2024-04-20 10:00:00"},
		domain.Record{"id": int64(4), "store_id": int64(7), "name": "Dewi", "email": "dewi@x.id", "role": "cashier", "status": "inactive", "created_at": "2024-05-15 10:00:00"},
	)
	return s
}

func names(page *domain.Page) []string {
	out := make([]string, 0, len(page.Items))
	for _, r := range page.Items {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestListFiltersByStore(t *testing.T) {
	s := staffStore()
	ctx := context.Background()

	page, err := s.List(ctx, screen(t, "staff"), query.Params{"store_id": {"7"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Budi", "Dewi", "Siti"}, names(page))

	page, err = s.List(ctx, screen(t, "staff"), query.Params{"store_ids": {"all"}})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Pagination.Total)

	_, err = s.List(ctx, screen(t, "staff"), query.Params{"store_id": {"seven"}})
	assert.ErrorIs(t, err, source.ErrInvalidQuery)
}

func TestListSearchDateAndCustom(t *testing.T) {
	s := staffStore()
	ctx := context.Background()
	staff := screen(t, "staff")

	page, err := s.List(ctx, staff, query.Params{"search": {"SITI@"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Siti"}, names(page))

	page, err = s.List(ctx, staff, query.Params{
		"start_date": {"2024-05-01 00:00:00"},
		"end_date":   {"2024-05-10 23:59:59"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Budi", "Siti"}, names(page))

	page, err = s.List(ctx, staff, query.Params{"role": {"cashier,manager"}, "status": {"inactive"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agus", "Dewi"}, names(page))
}

func TestListSortAndPaginate(t *testing.T) {
	s := staffStore()
	staff := screen(t, "staff")

	page, err := s.List(context.Background(), staff, query.Params{
		"sort_field":     {"created_at"},
		"sort_direction": {"desc"},
		"page":           {"2"},
		"per_page":       {"3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agus"}, names(page))
	assert.Equal(t, domain.Pagination{CurrentPage: 2, LastPage: 2, PerPage: 3, Total: 4}, page.Pagination)

	page, err = s.List(context.Background(), staff, query.Params{"page": {"9"}, "per_page": {"3"}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 9, page.Pagination.CurrentPage)

	_, err = s.List(context.Background(), staff, query.Params{"sort_field": {"password"}})
	assert.ErrorIs(t, err, source.ErrInvalidQuery)
}

func TestListNumericFilter(t *testing.T) {
	s := New()
	s.Put("expenses",
		domain.Record{"id": int64(1), "store_id": int64(7), "title": "Rent", "amount_cents": int64(500000), "spent_at": "2024-05-01 10:00:00"},
		domain.Record{"id": int64(2), "store_id": int64(7), "title": "Soap", "amount_cents": int64(15000), "spent_at": "2024-05-02 10:00:00"},
	)

	page, err := s.List(context.Background(), screen(t, "expenses"), query.Params{"min_amount": {"100000"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Rent", page.Items[0]["title"])

	_, err = s.List(context.Background(), screen(t, "expenses"), query.Params{"min_amount": {"lots"}})
	assert.ErrorIs(t, err, source.ErrInvalidQuery)
}

func TestListReturnsCopies(t *testing.T) {
	s := staffStore()
	page, err := s.List(context.Background(), screen(t, "staff"), query.Params{"search": {"budi"}})
	require.NoError(t, err)
	page.Items[0]["name"] = "changed"

	again, _ := s.List(context.Background(), screen(t, "staff"), query.Params{"search": {"budi"}})
	assert.Equal(t, "Budi", again.Items[0]["name"])
}

func TestListHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := staffStore().List(ctx, screen(t, "staff"), query.Params{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeededIncomeReportUsesFromToKeys(t *testing.T) {
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	s := NewSeeded(now)
	assert.Len(t, s.Stores(), 3)

	page, err := s.List(context.Background(), screen(t, "income_report"), query.Params{
		"store_ids": {"all"},
		"from_date": {"2024-05-15 00:00:00"},
		"to_date":   {"2024-05-15 23:59:59"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListHugePageIsEmptyNotPanic(t *testing.T) {
	s := NewSeeded(time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC))
	page, err := s.List(context.Background(), screen(t, "brands"), query.Params{
		"page":     {"1022337203685477580"},
		"per_page": {"10"},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1022337203685477580, page.Pagination.CurrentPage)
	assert.Greater(t, page.Pagination.Total, 0)
}

func TestWindow(t *testing.T) {
	cases := []struct {
		page, perPage, total int
		start, end           int
	}{
		{1, 10, 25, 0, 10},
		{3, 10, 25, 20, 25},
		{4, 10, 25, 25, 25},
		{1, 10, 0, 0, 0},
		{2, 1 << 62, 5, 5, 5},
		{1, 1 << 62, 5, 0, 5},
	}
	for _, c := range cases {
		start, end := window(c.page, c.perPage, c.total)
		assert.Equal(t, c.start, start, "page %d per %d total %d", c.page, c.perPage, c.total)
		assert.Equal(t, c.end, end, "page %d per %d total %d", c.page, c.perPage, c.total)
	}
}
