package listing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/storectx"
	"kasirinaja/backoffice/internal/xid"
)

// fakeSource records every request and answers with one item echoing the
// page number. A request whose page is listed in block waits for release
// and ignores cancellation.
type fakeSource struct {
	mu       sync.Mutex
	calls    []query.Params
	requests []string
	block    map[string]chan struct{}
	totals   map[string]int
	err      error
}

func (f *fakeSource) List(ctx context.Context, _ *screens.Screen, params query.Params) (*domain.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params.Clone())
	f.requests = append(f.requests, xid.RequestIDFrom(ctx))
	release := f.block[params.Get(query.KeyPage)]
	total, ok := f.totals[params.Get(query.KeyPage)]
	if !ok {
		total = 42
	}
	err := f.err
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &domain.Page{
		Items:      []domain.Record{{"id": 1, "page": params.Get(query.KeyPage)}},
		Pagination: domain.Pagination{Total: total},
	}, nil
}

func (f *fakeSource) snapshot() []query.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]query.Params(nil), f.calls...)
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func waitIdle(t *testing.T, b *Binding) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.WaitIdle(ctx))
}

func newBinding(t *testing.T, screen string, src *fakeSource, opts BindingOptions) *Binding {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.Debounce == 0 {
		opts.Debounce = -1
	}
	c := NewController(screenFor(t, screen), storeID(7), ControllerOptions{})
	b := NewBinding(c, src, opts)
	t.Cleanup(b.Close)
	return b
}

func TestStartFetchesFirstPage(t *testing.T) {
	src := &fakeSource{}
	b := newBinding(t, "brands", src, BindingOptions{})

	var states []State
	var mu sync.Mutex
	b.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	b.Start(context.Background())
	waitIdle(t, b)

	st := b.State()
	require.NoError(t, st.Err)
	require.NotNil(t, st.Data)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsFetching)
	assert.Equal(t, "7", st.Params.Get(query.KeyStoreID))
	assert.True(t, strings.HasPrefix(st.RequestID, "req-"))
	assert.Equal(t, 5, b.Controller().Pagination().TotalPages)

	calls := src.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "page=1&per_page=10&sort_direction=asc&sort_field=name&store_id=7", calls[0].Encode())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.True(t, states[0].IsLoading)
	assert.True(t, states[0].IsFetching)
	assert.False(t, states[1].IsFetching)
}

func TestUnchangedParamsAreNotRefetched(t *testing.T) {
	src := &fakeSource{}
	b := newBinding(t, "brands", src, BindingOptions{})
	b.Start(context.Background())
	waitIdle(t, b)

	b.Controller().SetPage(1)
	b.Controller().SetSearch("   ")
	require.NoError(t, b.Controller().SetCustom("status", filter.Scalar(filter.All)))
	waitIdle(t, b)
	assert.Len(t, src.snapshot(), 1)

	b.Refresh()
	waitIdle(t, b)
	assert.Len(t, src.snapshot(), 2)
}

func TestSearchIsDebounced(t *testing.T) {
	src := &fakeSource{}
	b := newBinding(t, "staff", src, BindingOptions{Debounce: 40 * time.Millisecond})
	b.Start(context.Background())
	waitIdle(t, b)

	b.Controller().SetSearch("s")
	b.Controller().SetSearch("si")
	b.Controller().SetSearch("siti")
	assert.Len(t, src.snapshot(), 1)

	waitIdle(t, b)
	calls := src.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "siti", calls[1].Get(query.KeySearch))
}

func TestNonSearchChangeFlushesPendingSearch(t *testing.T) {
	src := &fakeSource{}
	b := newBinding(t, "brands", src, BindingOptions{Debounce: time.Hour})
	b.Start(context.Background())
	waitIdle(t, b)

	b.Controller().SetSearch("kopi")
	b.Controller().SetStore(filter.AllStores())
	waitIdle(t, b)

	calls := src.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "kopi", calls[1].Get(query.KeySearch))
	assert.Equal(t, filter.All, calls[1].Get(query.KeyStoreIDs))
	assert.False(t, calls[1].Has(query.KeyStoreID))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{block: map[string]chan struct{}{"1": release}}
	reg := prometheus.NewRegistry()
	b := newBinding(t, "brands", src, BindingOptions{Metrics: metrics.New(reg)})

	b.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	b.Controller().SetPage(2)
	require.Eventually(t, func() bool {
		st := b.State()
		return st.Data != nil && !st.IsFetching
	}, time.Second, 5*time.Millisecond)

	close(release)
	waitIdle(t, b)

	st := b.State()
	require.NotNil(t, st.Data)
	assert.Equal(t, "2", st.Data.Items[0]["page"])
	assert.Equal(t, "2", st.Params.Get(query.KeyPage))

	expected := `
# HELP backoffice_list_stale_responses_total Responses discarded because a newer request superseded them.
# TYPE backoffice_list_stale_responses_total counter
backoffice_list_stale_responses_total{screen="brands"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "backoffice_list_stale_responses_total"))
}

func TestSupersededResponseLeavesTotalsAndOrder(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{
		block:  map[string]chan struct{}{"1": release},
		totals: map[string]int{"1": 11, "2": 84},
	}
	b := newBinding(t, "brands", src, BindingOptions{})

	var states []State
	var mu sync.Mutex
	b.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	b.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	b.Controller().SetPage(2)
	require.Eventually(t, func() bool {
		st := b.State()
		return st.Data != nil && !st.IsFetching
	}, time.Second, 5*time.Millisecond)

	close(release)
	waitIdle(t, b)

	p := b.Controller().Pagination()
	assert.Equal(t, 84, p.TotalItems)
	assert.Equal(t, 9, p.TotalPages)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.False(t, last.IsFetching)
	assert.Equal(t, "2", last.Params.Get(query.KeyPage))
	assert.Equal(t, "2", last.Data.Items[0]["page"])
	for _, st := range states {
		if st.Data != nil {
			assert.NotEqual(t, "1", st.Data.Items[0]["page"])
		}
	}
}

func TestFetchErrorPassesThroughAndKeepsData(t *testing.T) {
	src := &fakeSource{}
	b := newBinding(t, "brands", src, BindingOptions{})
	b.Start(context.Background())
	waitIdle(t, b)
	first := b.State().Data
	require.NotNil(t, first)

	boom := errors.New("HTTP 500: database is down")
	src.setErr(boom)
	b.Controller().SetPage(2)
	waitIdle(t, b)

	st := b.State()
	assert.Same(t, boom, st.Err)
	assert.Same(t, first, st.Data)
	assert.False(t, st.IsFetching)
	assert.Len(t, src.snapshot(), 2)

	src.setErr(nil)
	b.Refresh()
	waitIdle(t, b)
	assert.NoError(t, b.State().Err)
	assert.Len(t, src.snapshot(), 3)
}

func TestStoreContextSwitchRefetchesWithDefaults(t *testing.T) {
	src := &fakeSource{}
	stores := storectx.New(storeID(7), []domain.Store{{ID: 7, Name: "Pusat"}, {ID: 9, Name: "Cabang"}})
	b := newBinding(t, "staff", src, BindingOptions{Stores: stores})
	b.Start(context.Background())
	waitIdle(t, b)

	require.NoError(t, b.Controller().ToggleOption("role", "cashier"))
	b.Controller().SetPage(3)
	waitIdle(t, b)

	require.NoError(t, stores.Switch(9))
	waitIdle(t, b)

	calls := src.snapshot()
	last := calls[len(calls)-1]
	assert.Equal(t, "9", last.Get(query.KeyStoreID))
	assert.Equal(t, "1", last.Get(query.KeyPage))
	assert.False(t, last.Has("role"))
	assert.False(t, b.Controller().HasActiveFilters())
}

func TestStartAdoptsCurrentStore(t *testing.T) {
	src := &fakeSource{}
	stores := storectx.New(storeID(9), []domain.Store{{ID: 9, Name: "Cabang"}})
	b := newBinding(t, "brands", src, BindingOptions{Stores: stores})
	b.Start(context.Background())
	waitIdle(t, b)

	calls := src.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "9", calls[0].Get(query.KeyStoreID))
}

func TestCloseDropsLateResponses(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{block: map[string]chan struct{}{"1": release}}
	b := newBinding(t, "brands", src, BindingOptions{})
	b.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	b.Close()
	close(release)
	waitIdle(t, b)

	assert.Nil(t, b.State().Data)
	b.Controller().SetPage(2)
	assert.Len(t, src.snapshot(), 1)
}
