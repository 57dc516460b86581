// Package query turns filter criteria plus paging and sort state into the flat
// query parameters expected by the back-office list API.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
)

const (
	KeySearch        = "search"
	KeyStoreID       = "store_id"
	KeyStoreIDs      = "store_ids"
	KeyStartDate     = "start_date"
	KeyEndDate       = "end_date"
	KeyPage          = "page"
	KeyPerPage       = "per_page"
	KeySortField     = "sort_field"
	KeySortDirection = "sort_direction"
)

// Params is a derived value: it is recomputed from state, never edited in
// place by callers that do not own it.
type Params url.Values

func (p Params) Get(key string) string {
	return url.Values(p).Get(key)
}

func (p Params) Values(key string) []string {
	return append([]string(nil), p[key]...)
}

func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Params) Set(key string, value string) {
	url.Values(p).Set(key, value)
}

func (p Params) Del(key string) {
	delete(p, key)
}

// Encode is the canonical form used for structural comparison: keys sorted,
// values in insertion order.
func (p Params) Encode() string {
	return url.Values(p).Encode()
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Parse(raw string) (Params, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return Params(values), nil
}

// DateKeys names the parameter pair a resolved date range is flattened into.
type DateKeys struct {
	Start string
	End   string
}

var DefaultDateKeys = DateKeys{Start: KeyStartDate, End: KeyEndDate}

type Options struct {
	Now      time.Time
	DateKeys DateKeys
	// Overrides are applied after every rule. A store key set here wins over
	// the one resolved from the criteria.
	Overrides Params
}

// Normalize is a pure function of its inputs; Now must be injected for date
// ranges to resolve deterministically.
func Normalize(c filter.Criteria, currentStoreID *domain.StoreID, schema *filter.Schema, opts Options) Params {
	p := make(Params)

	if search := strings.TrimSpace(c.Search); search != "" {
		p.Set(KeySearch, search)
	}

	switch c.Store.Mode {
	case filter.StoreAll:
		p.Set(KeyStoreIDs, filter.All)
	case filter.StoreSpecific:
		p.Set(KeyStoreID, c.Store.ID.String())
	default:
		if currentStoreID != nil {
			p.Set(KeyStoreID, currentStoreID.String())
		}
	}

	if c.DateRange.Active() {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		if r := c.DateRange.Resolve(now); r != nil {
			keys := opts.DateKeys
			if keys.Start == "" || keys.End == "" {
				keys = DefaultDateKeys
			}
			p.Set(keys.Start, r.StartDate)
			p.Set(keys.End, r.EndDate)
		}
	}

	for _, cfg := range schema.Configs() {
		v, ok := c.Custom[cfg.Key]
		if !ok {
			continue
		}
		emitCustom(p, cfg, cfg.Sanitize(v))
	}

	for key, values := range opts.Overrides {
		p[key] = append([]string(nil), values...)
	}
	enforceStoreExclusion(p, opts.Overrides)
	return p
}

func emitCustom(p Params, cfg filter.CustomFilterConfig, v filter.Value) {
	if cfg.IsDefault(v) {
		return
	}
	key := cfg.ParamKey()
	if cfg.Type == filter.FieldMultiselect {
		if len(v.Values) == 0 {
			return
		}
		if cfg.Encoding == filter.EncodingArray {
			if !strings.HasSuffix(key, "[]") {
				key += "[]"
			}
			p[key] = append([]string(nil), v.Values...)
			return
		}
		p.Set(key, strings.Join(v.Values, ","))
		return
	}
	scalar := strings.TrimSpace(v.Scalar)
	if scalar == "" || (cfg.Type == filter.FieldSelect && scalar == filter.All) {
		return
	}
	p.Set(key, scalar)
}

// enforceStoreExclusion keeps at most one of store_id and store_ids.
func enforceStoreExclusion(p Params, overrides Params) {
	if !p.Has(KeyStoreID) || !p.Has(KeyStoreIDs) {
		return
	}
	switch {
	case overrides.Has(KeyStoreID) && !overrides.Has(KeyStoreIDs):
		p.Del(KeyStoreIDs)
	case overrides.Has(KeyStoreIDs) && !overrides.Has(KeyStoreID):
		p.Del(KeyStoreID)
	default:
		if p.Get(KeyStoreIDs) == filter.All {
			p.Del(KeyStoreID)
		} else {
			p.Del(KeyStoreIDs)
		}
	}
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), string(Desc)) {
		return Desc
	}
	return Asc
}

func (d Direction) Flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// WithPaging returns a copy of p with page, per_page and sort merged in.
func WithPaging(p Params, page int, perPage int, s Sort) Params {
	out := p.Clone()
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	out.Set(KeyPage, strconv.Itoa(page))
	out.Set(KeyPerPage, strconv.Itoa(perPage))
	if s.Field != "" {
		dir := s.Direction
		if dir != Desc {
			dir = Asc
		}
		out.Set(KeySortField, s.Field)
		out.Set(KeySortDirection, string(dir))
	}
	return out
}

// Paging reads page and per_page back out of params, falling back when a
// value is missing or not a positive integer.
func Paging(p Params, fallbackPerPage int) (page int, perPage int) {
	page = positive(p.Get(KeyPage), 1)
	perPage = positive(p.Get(KeyPerPage), fallbackPerPage)
	return page, perPage
}

func SortOf(p Params) Sort {
	return Sort{
		Field:     strings.TrimSpace(p.Get(KeySortField)),
		Direction: ParseDirection(p.Get(KeySortDirection)),
	}
}

func positive(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
