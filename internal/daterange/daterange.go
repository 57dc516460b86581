// Package daterange turns symbolic date-range selectors into concrete
// start/end timestamps for list queries.
package daterange

import (
	"strings"
	"time"
)

// Layout is the timestamp shape expected by the list API.
const Layout = "2006-01-02 15:04:05"

type Kind string

const (
	KindNone      Kind = "none"
	KindToday     Kind = "today"
	KindYesterday Kind = "yesterday"
	KindThisWeek  Kind = "this_week"
	KindLastWeek  Kind = "last_week"
	KindThisMonth Kind = "this_month"
	KindLastMonth Kind = "last_month"
	KindThisYear  Kind = "this_year"
	KindLastYear  Kind = "last_year"
	KindCustom    Kind = "custom"
)

var kinds = []Kind{
	KindNone, KindToday, KindYesterday, KindThisWeek, KindLastWeek,
	KindThisMonth, KindLastMonth, KindThisYear, KindLastYear, KindCustom,
}

func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind normalizes case, whitespace and dashes. An unrecognized value is
// returned as-is so that Resolve can fail open on it.
func ParseKind(raw string) Kind {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "" {
		return KindNone
	}
	return Kind(normalized)
}

func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Custom carries caller-supplied "yyyy-MM-dd" dates for KindCustom.
type Custom struct {
	Start string
	End   string
}

// Spec is the date-range part of a filter criteria.
type Spec struct {
	Kind  Kind   `json:"kind"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Active reports whether the spec constrains anything at all.
func (s *Spec) Active() bool {
	return s != nil && s.Kind != "" && s.Kind != KindNone
}

func (s *Spec) Resolve(now time.Time) *Range {
	if s == nil {
		return nil
	}
	return Resolve(s.Kind, now, &Custom{Start: s.Start, End: s.End})
}

type Range struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Resolve maps kind and now to an inclusive [start, end] pair. Weeks start on
// Monday. Custom dates are used verbatim without timezone conversion; callers
// supply valid "yyyy-MM-dd" strings. KindNone, unknown kinds and a custom
// range missing either bound resolve to nil.
func Resolve(kind Kind, now time.Time, custom *Custom) *Range {
	day := startOfDay(now)

	switch kind {
	case KindToday:
		return span(day, day)
	case KindYesterday:
		prev := day.AddDate(0, 0, -1)
		return span(prev, prev)
	case KindThisWeek:
		monday := startOfWeek(day)
		return span(monday, monday.AddDate(0, 0, 6))
	case KindLastWeek:
		monday := startOfWeek(day).AddDate(0, 0, -7)
		return span(monday, monday.AddDate(0, 0, 6))
	case KindThisMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return span(first, first.AddDate(0, 1, -1))
	case KindLastMonth:
		first := time.Date(day.Year(), day.Month()-1, 1, 0, 0, 0, 0, day.Location())
		return span(first, first.AddDate(0, 1, -1))
	case KindThisYear:
		first := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
		return span(first, first.AddDate(1, 0, -1))
	case KindLastYear:
		first := time.Date(day.Year()-1, time.January, 1, 0, 0, 0, 0, day.Location())
		return span(first, first.AddDate(1, 0, -1))
	case KindCustom:
		if custom == nil {
			return nil
		}
		start := strings.TrimSpace(custom.Start)
		end := strings.TrimSpace(custom.End)
		if start == "" || end == "" {
			return nil
		}
		return &Range{StartDate: start + " 00:00:00", EndDate: end + " 23:59:59"}
	default:
		return nil
	}
}

func span(firstDay time.Time, lastDay time.Time) *Range {
	return &Range{
		StartDate: firstDay.Format(Layout),
		EndDate:   endOfDay(lastDay).Format(Layout),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
