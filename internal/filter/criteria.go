package filter

import (
	"fmt"
	"strings"

	"kasirinaja/backoffice/internal/daterange"
	"kasirinaja/backoffice/internal/domain"
)

type StoreMode int

const (
	// StoreCurrent follows whatever store the session context points at.
	StoreCurrent StoreMode = iota
	StoreAll
	StoreSpecific
)

type StoreSelector struct {
	Mode StoreMode
	ID   domain.StoreID
}

func CurrentStore() StoreSelector {
	return StoreSelector{Mode: StoreCurrent}
}

func AllStores() StoreSelector {
	return StoreSelector{Mode: StoreAll}
}

func SpecificStore(id domain.StoreID) StoreSelector {
	return StoreSelector{Mode: StoreSpecific, ID: id}
}

// ParseStoreSelector accepts "", "current", "all" or a positive store id.
func ParseStoreSelector(raw string) (StoreSelector, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "current":
		return CurrentStore(), nil
	case All:
		return AllStores(), nil
	}
	id, err := domain.ParseStoreID(raw)
	if err != nil {
		return StoreSelector{}, fmt.Errorf("store selector: %w", err)
	}
	return SpecificStore(id), nil
}

func (s StoreSelector) String() string {
	switch s.Mode {
	case StoreAll:
		return All
	case StoreSpecific:
		return s.ID.String()
	default:
		return "current"
	}
}

// anchored resolves the current-store mode against a known store id.
func (s StoreSelector) anchored(current *domain.StoreID) StoreSelector {
	if s.Mode == StoreCurrent && current != nil {
		return SpecificStore(*current)
	}
	return s
}

// Criteria is the full filter state of one list screen.
type Criteria struct {
	Search    string
	Store     StoreSelector
	DateRange *daterange.Spec
	Custom    map[string]Value
}

func (c Criteria) Clone() Criteria {
	out := Criteria{
		Search: c.Search,
		Store:  c.Store,
		Custom: make(map[string]Value, len(c.Custom)),
	}
	if c.DateRange != nil {
		spec := *c.DateRange
		out.DateRange = &spec
	}
	for k, v := range c.Custom {
		out.Custom[k] = v.clone()
	}
	return out
}

func (c Criteria) CustomValue(key string) (Value, bool) {
	v, ok := c.Custom[key]
	return v, ok
}

func sameDateRange(a *daterange.Spec, b *daterange.Spec) bool {
	if !a.Active() || !b.Active() {
		return a.Active() == b.Active()
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == daterange.KindCustom {
		return strings.TrimSpace(a.Start) == strings.TrimSpace(b.Start) &&
			strings.TrimSpace(a.End) == strings.TrimSpace(b.End)
	}
	return true
}
