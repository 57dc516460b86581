// Package memory is an in-process list source over seeded records. It applies
// the same filter, sort and paging rules the list API does.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
)

const defaultPerPage = 10

type Store struct {
	mu     sync.RWMutex
	rows   map[string][]domain.Record
	stores []domain.Store
}

func New() *Store {
	return &Store{rows: make(map[string][]domain.Record)}
}

// Put appends records to a screen's table.
func (s *Store) Put(table string, records ...domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		copied := make(domain.Record, len(r))
		for k, v := range r {
			copied[k] = v
		}
		s.rows[table] = append(s.rows[table], copied)
	}
}

func (s *Store) Stores() []domain.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Store(nil), s.stores...)
}

func (s *Store) List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if screen == nil {
		return nil, source.ErrUnknownScreen
	}

	match, err := buildMatcher(screen, params)
	if err != nil {
		return nil, err
	}
	order := query.SortOf(params)
	if order.Field == "" {
		order = screen.DefaultSortState()
	}
	if order.Field != "" && !screen.CanSort(order.Field) {
		return nil, fmt.Errorf("%w: cannot sort by %q", source.ErrInvalidQuery, order.Field)
	}

	s.mu.RLock()
	var items []domain.Record
	for _, row := range s.rows[screen.Table] {
		if match(row) {
			items = append(items, row)
		}
	}
	s.mu.RUnlock()

	if order.Field != "" {
		slices.SortStableFunc(items, func(a, b domain.Record) int {
			c := compareValues(a[order.Field], b[order.Field])
			if c == 0 {
				c = compareValues(a["id"], b["id"])
			}
			if order.Direction == query.Desc {
				return -c
			}
			return c
		})
	}

	page, perPage := query.Paging(params, defaultPerPage)
	total := len(items)
	start, end := window(page, perPage, total)

	out := make([]domain.Record, 0, end-start)
	for _, row := range items[start:end] {
		copied := make(domain.Record, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out = append(out, copied)
	}
	return &domain.Page{
		Items: out,
		Pagination: domain.Pagination{
			CurrentPage: page,
			LastPage:    source.LastPage(total, perPage),
			PerPage:     perPage,
			Total:       total,
		},
	}, nil
}

// window returns the slice bounds of page within total rows without
// overflowing on large page numbers.
func window(page int, perPage int, total int) (int, int) {
	if page-1 > total/perPage {
		return total, total
	}
	start := min((page-1)*perPage, total)
	if perPage >= total-start {
		return start, total
	}
	return start, start + perPage
}

type predicate func(domain.Record) bool

func buildMatcher(screen *screens.Screen, params query.Params) (predicate, error) {
	var preds []predicate

	if params.Get(query.KeyStoreIDs) != filter.All && params.Has(query.KeyStoreID) {
		id, err := domain.ParseStoreID(params.Get(query.KeyStoreID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", source.ErrInvalidQuery, err)
		}
		column := screen.StoreColumnName()
		preds = append(preds, func(r domain.Record) bool {
			v, ok := toFloat(r[column])
			return ok && int64(v) == int64(id)
		})
	}

	if search := strings.ToLower(strings.TrimSpace(params.Get(query.KeySearch))); search != "" {
		columns := screen.SearchColumns
		preds = append(preds, func(r domain.Record) bool {
			for _, col := range columns {
				if strings.Contains(strings.ToLower(toString(r[col])), search) {
					return true
				}
			}
			return false
		})
	}

	if screen.DateColumn != "" {
		keys := screen.DateKeys()
		from := params.Get(keys.Start)
		to := params.Get(keys.End)
		column := screen.DateColumn
		if from != "" {
			preds = append(preds, func(r domain.Record) bool { return toString(r[column]) >= from })
		}
		if to != "" {
			preds = append(preds, func(r domain.Record) bool { return toString(r[column]) <= to })
		}
	}

	for _, field := range screen.Filters {
		values := field.Values(params)
		if len(values) == 0 {
			continue
		}
		pred, err := fieldPredicate(field, values)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	return func(r domain.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

func fieldPredicate(field screens.Field, values []string) (predicate, error) {
	column := field.ColumnName()
	switch field.Operator() {
	case screens.OpIn:
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		return func(r domain.Record) bool {
			_, ok := set[toString(r[column])]
			return ok
		}, nil
	case screens.OpGte, screens.OpLte:
		bound, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number", source.ErrInvalidQuery, field.Param())
		}
		gte := field.Operator() == screens.OpGte
		return func(r domain.Record) bool {
			v, ok := toFloat(r[column])
			if !ok {
				return false
			}
			if gte {
				return v >= bound
			}
			return v <= bound
		}, nil
	case screens.OpLike:
		needle := strings.ToLower(values[0])
		return func(r domain.Record) bool {
			return strings.Contains(strings.ToLower(toString(r[column])), needle)
		}, nil
	default:
		want := values[0]
		if field.Type == filter.FieldNumber {
			if _, err := strconv.ParseFloat(want, 64); err != nil {
				return nil, fmt.Errorf("%w: %s is not a number", source.ErrInvalidQuery, field.Param())
			}
		}
		return func(r domain.Record) bool {
			return compareValues(r[column], want) == 0
		}, nil
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// compareValues orders numerically when both sides are numbers, otherwise
// case-insensitively by their string form.
func compareValues(a any, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(toString(a)), strings.ToLower(toString(b)))
}
