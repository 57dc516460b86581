// Package listing drives one paginated, sorted and filtered list screen: the
// Controller owns page and sort state next to the filters, and the Binding
// keeps a fetched page in step with the parameters they produce.
package listing

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"kasirinaja/backoffice/internal/daterange"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
)

const (
	DefaultPerPage    = 10
	DefaultMaxPerPage = 100
)

// Change tells listeners what kind of mutation just happened.
type Change int

const (
	ChangeSearch Change = iota + 1
	ChangeFilter
	ChangeStore
	ChangeSort
	ChangePage
	ChangePerPage
)

func (c Change) String() string {
	switch c {
	case ChangeSearch:
		return "search"
	case ChangeFilter:
		return "filter"
	case ChangeStore:
		return "store"
	case ChangeSort:
		return "sort"
	case ChangePage:
		return "page"
	case ChangePerPage:
		return "per_page"
	default:
		return "unknown"
	}
}

type PaginationState struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
}

type ControllerOptions struct {
	PerPage    int
	MaxPerPage int
	// Overrides are merged into every normalized parameter set.
	Overrides query.Params
}

type Controller struct {
	screen    *screens.Screen
	filters   *filter.State
	overrides query.Params

	mu             sync.Mutex
	page           int
	perPage        int
	defaultPerPage int
	maxPerPage     int
	sort           query.Sort
	totalItems     int
	totalPages     int
	nextSub        int
	subs           map[int]func(Change)
}

func NewController(screen *screens.Screen, current *domain.StoreID, opts ControllerOptions) *Controller {
	maxPerPage := opts.MaxPerPage
	if maxPerPage < 1 {
		maxPerPage = DefaultMaxPerPage
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return &Controller{
		screen:         screen,
		filters:        filter.NewState(screen.Schema(), current),
		overrides:      opts.Overrides.Clone(),
		page:           1,
		perPage:        perPage,
		defaultPerPage: perPage,
		maxPerPage:     maxPerPage,
		sort:           screen.DefaultSortState(),
		totalPages:     1,
		subs:           make(map[int]func(Change)),
	}
}

func (c *Controller) Screen() *screens.Screen {
	return c.screen
}

// Filters exposes the filter state for reads. Mutations must go through the
// controller so that pagination follows.
func (c *Controller) Filters() *filter.State {
	return c.filters
}

func (c *Controller) Criteria() filter.Criteria {
	return c.filters.Criteria()
}

func (c *Controller) Summary() []filter.Badge {
	return c.filters.Summary()
}

func (c *Controller) HasActiveFilters() bool {
	return c.filters.HasActiveFilters()
}

// Subscribe registers fn for every later change. fn runs on the mutating
// goroutine after the controller lock is released.
func (c *Controller) Subscribe(fn func(Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) notify(change Change) {
	c.mu.Lock()
	subs := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (c *Controller) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	changed := c.page != n
	c.page = n
	c.mu.Unlock()
	if changed {
		c.notify(ChangePage)
	}
}

// SetItemsPerPage clamps n to [1, MaxPerPage] and goes back to page 1.
func (c *Controller) SetItemsPerPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	if n > c.maxPerPage {
		n = c.maxPerPage
	}
	changed := c.perPage != n || c.page != 1
	c.perPage = n
	c.page = 1
	c.mu.Unlock()
	if changed {
		c.notify(ChangePerPage)
	}
}

// SetItemsPerPageText accepts raw user input; anything that is not a positive
// integer falls back to the configured page size.
func (c *Controller) SetItemsPerPageText(raw string) {
	c.mu.Lock()
	fallback, max := c.defaultPerPage, c.maxPerPage
	c.mu.Unlock()
	c.SetItemsPerPage(ParsePositive(raw, fallback, max))
}

// SetSort flips the direction when field is already the sort field and
// starts ascending otherwise. A field the screen does not allow is ignored.
func (c *Controller) SetSort(field string) bool {
	field = strings.TrimSpace(field)
	if !c.screen.CanSort(field) {
		return false
	}
	c.mu.Lock()
	if c.sort.Field == field {
		c.sort.Direction = c.sort.Direction.Flip()
	} else {
		c.sort = query.Sort{Field: field, Direction: query.Asc}
	}
	c.page = 1
	c.mu.Unlock()
	c.notify(ChangeSort)
	return true
}

func (c *Controller) SortBy(field string, dir query.Direction) bool {
	field = strings.TrimSpace(field)
	if !c.screen.CanSort(field) {
		return false
	}
	if dir != query.Desc {
		dir = query.Asc
	}
	c.mu.Lock()
	changed := c.sort.Field != field || c.sort.Direction != dir || c.page != 1
	c.sort = query.Sort{Field: field, Direction: dir}
	c.page = 1
	c.mu.Unlock()
	if changed {
		c.notify(ChangeSort)
	}
	return true
}

func (c *Controller) Sort() query.Sort {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

func (c *Controller) Pagination() PaginationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PaginationState{
		CurrentPage:  c.page,
		ItemsPerPage: c.perPage,
		TotalPages:   c.totalPages,
		TotalItems:   c.totalItems,
	}
}

// ApplyTotals records the counts of a freshly fetched page. The current page
// stays where it is even when it now lies past the last page.
func (c *Controller) ApplyTotals(p domain.Pagination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := p.Total
	if total < 0 {
		total = 0
	}
	c.totalItems = total
	c.totalPages = source.LastPage(total, c.perPage)
}

func (c *Controller) SetSearch(text string) {
	c.mutateFilters(func() error {
		c.filters.SetSearch(text)
		return nil
	})
}

func (c *Controller) SetStore(sel filter.StoreSelector) {
	c.mutateFilters(func() error {
		c.filters.SetStore(sel)
		return nil
	})
}

func (c *Controller) SetDateRange(spec *daterange.Spec) {
	c.mutateFilters(func() error {
		c.filters.SetDateRange(spec)
		return nil
	})
}

func (c *Controller) SetCustom(key string, v filter.Value) error {
	return c.mutateFilters(func() error {
		return c.filters.SetCustom(key, v)
	})
}

func (c *Controller) ToggleOption(key string, option string) error {
	return c.mutateFilters(func() error {
		return c.filters.ToggleOption(key, option)
	})
}

func (c *Controller) ToggleAllOptions(key string) error {
	return c.mutateFilters(func() error {
		return c.filters.ToggleAllOptions(key)
	})
}

// ResetFilters restores every filter to its default, anchored to the current
// store.
func (c *Controller) ResetFilters() {
	c.mutateFilters(func() error {
		c.filters.Reset()
		return nil
	})
}

// OnFilterChanged replaces the whole criteria and returns to page 1.
func (c *Controller) OnFilterChanged(next filter.Criteria) error {
	return c.mutateFilters(func() error {
		return c.filters.Replace(next)
	})
}

// OnStoreContextChanged rebinds every filter to the defaults of the new
// current store and returns to page 1.
func (c *Controller) OnStoreContextChanged(id *domain.StoreID) {
	c.filters.Rebind(id)
	c.mu.Lock()
	c.page = 1
	c.mu.Unlock()
	c.notify(ChangeStore)
}

func (c *Controller) mutateFilters(apply func() error) error {
	before := c.filters.Criteria()
	if err := apply(); err != nil {
		return err
	}
	after := c.filters.Criteria()

	c.mu.Lock()
	pageReset := c.page != 1
	c.page = 1
	c.mu.Unlock()

	schema := c.screen.Schema()
	switch {
	case schema.SearchOnly(before, after):
		c.notify(ChangeSearch)
	case !schema.Equal(before, after) || pageReset:
		c.notify(ChangeFilter)
	}
	return nil
}

// Params is the full parameter set for the current state: normalized filters
// merged with page, page size and sort.
func (c *Controller) Params(now time.Time) query.Params {
	p := query.Normalize(c.filters.Criteria(), c.filters.CurrentStoreID(), c.screen.Schema(), query.Options{
		Now:       now,
		DateKeys:  c.screen.DateKeys(),
		Overrides: c.overrides,
	})
	c.mu.Lock()
	page, perPage, sort := c.page, c.perPage, c.sort
	c.mu.Unlock()
	return query.WithPaging(p, page, perPage, sort)
}

// ParsePositive parses raw as a positive integer, using fallback when it is
// not one and capping the result at max when max is positive.
func ParsePositive(raw string, fallback int, max int) int {
	n := fallback
	if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
		n = parsed
	}
	if max > 0 && n > max {
		return max
	}
	if n < 1 {
		return 1
	}
	return n
}
