package filter

import (
	"fmt"
	"strings"

	"kasirinaja/backoffice/internal/daterange"
)

// Badge is one entry of the active-filter summary shown above a list.
type Badge struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

const (
	BadgeSearch    = "search"
	BadgeStore     = "store"
	BadgeDateRange = "date_range"
)

// Summarize lists every filter whose value differs from defaults, in a
// stable order: search, store, date range, then custom filters in schema
// order.
func (s *Schema) Summarize(c Criteria, defaults Criteria) []Badge {
	var badges []Badge

	search := strings.TrimSpace(c.Search)
	if search != strings.TrimSpace(defaults.Search) {
		badges = append(badges, Badge{Key: BadgeSearch, Label: "Search", Value: search})
	}

	if !sameStore(c.Store, defaults.Store) {
		badges = append(badges, Badge{Key: BadgeStore, Label: "Store", Value: storeLabel(c.Store)})
	}

	if !sameDateRange(c.DateRange, defaults.DateRange) {
		badges = append(badges, Badge{Key: BadgeDateRange, Label: "Date", Value: dateRangeLabel(c.DateRange)})
	}

	if s == nil {
		return badges
	}
	for _, cfg := range s.configs {
		v, ok := c.Custom[cfg.Key]
		if !ok {
			continue
		}
		def, ok := defaults.Custom[cfg.Key]
		if !ok {
			def = cfg.DefaultValue()
		}
		if cfg.Equal(v, def) {
			continue
		}
		badges = append(badges, Badge{Key: cfg.Key, Label: cfg.DisplayLabel(), Value: cfg.display(v)})
	}
	return badges
}

func (s *Schema) HasActiveFilters(c Criteria, defaults Criteria) bool {
	return len(s.Summarize(c, defaults)) > 0
}

// Equal reports whether a and b describe the same filters once search is
// trimmed and custom values are compared by their declared type.
func (s *Schema) Equal(a Criteria, b Criteria) bool {
	if strings.TrimSpace(a.Search) != strings.TrimSpace(b.Search) {
		return false
	}
	return s.equalIgnoringSearch(a, b)
}

// SearchOnly reports whether the only difference between before and after is
// the search text.
func (s *Schema) SearchOnly(before Criteria, after Criteria) bool {
	if strings.TrimSpace(before.Search) == strings.TrimSpace(after.Search) {
		return false
	}
	return s.equalIgnoringSearch(before, after)
}

func (s *Schema) equalIgnoringSearch(a Criteria, b Criteria) bool {
	if a.Store != b.Store || !sameDateRange(a.DateRange, b.DateRange) {
		return false
	}
	if s == nil {
		return true
	}
	for _, cfg := range s.configs {
		if !cfg.Equal(a.Custom[cfg.Key], b.Custom[cfg.Key]) {
			return false
		}
	}
	return true
}

// sameStore treats the current-store mode as equal to a default that has
// already been anchored to a concrete store.
func sameStore(a StoreSelector, def StoreSelector) bool {
	if def.Mode == StoreSpecific {
		anchor := def.ID
		a = a.anchored(&anchor)
	}
	return a == def
}

func storeLabel(sel StoreSelector) string {
	switch sel.Mode {
	case StoreAll:
		return "All stores"
	case StoreSpecific:
		return fmt.Sprintf("Store #%s", sel.ID)
	default:
		return "Current store"
	}
}

var kindLabels = map[daterange.Kind]string{
	daterange.KindToday:     "Today",
	daterange.KindYesterday: "Yesterday",
	daterange.KindThisWeek:  "This week",
	daterange.KindLastWeek:  "Last week",
	daterange.KindThisMonth: "This month",
	daterange.KindLastMonth: "Last month",
	daterange.KindThisYear:  "This year",
	daterange.KindLastYear:  "Last year",
}

func dateRangeLabel(spec *daterange.Spec) string {
	if !spec.Active() {
		return "Any time"
	}
	if spec.Kind == daterange.KindCustom {
		return fmt.Sprintf("%s to %s", strings.TrimSpace(spec.Start), strings.TrimSpace(spec.End))
	}
	if label, ok := kindLabels[spec.Kind]; ok {
		return label
	}
	return string(spec.Kind)
}
