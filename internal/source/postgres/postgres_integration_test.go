package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"kasirinaja/backoffice/internal/query"
)

func TestListBrandsAgainstDatabase(t *testing.T) {
	databaseURL := os.Getenv("BACKOFFICE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BACKOFFICE_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	storeID := stamp%1_000_000 + 1_000_000
	name := fmt.Sprintf("Brand IT %d", stamp)

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS brands (
			id BIGSERIAL PRIMARY KEY,
			store_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT now()
		)
	`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM brands WHERE store_id = $1`, storeID)
	})

	for i := 0; i < 3; i++ {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO brands (store_id, name, status) VALUES ($1, $2, 'active')`,
			storeID, fmt.Sprintf("%s-%d", name, i),
		); err != nil {
			t.Fatalf("insert brand: %v", err)
		}
	}

	page, err := s.List(ctx, screen(t, "brands"), query.Params{
		"store_id": {fmt.Sprint(storeID)},
		"search":   {name},
		"per_page": {"2"},
	})
	if err != nil {
		t.Fatalf("list brands: %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.LastPage != 2 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on first page, got %d", len(page.Items))
	}
}
