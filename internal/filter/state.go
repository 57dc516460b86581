package filter

import (
	"fmt"
	"sync"

	"kasirinaja/backoffice/internal/daterange"
	"kasirinaja/backoffice/internal/domain"
)

// State is the mutable filter store of one list screen. Every mutation
// sanitizes its input; a key outside the schema is the only rejected input.
type State struct {
	mu       sync.RWMutex
	schema   *Schema
	current  *domain.StoreID
	criteria Criteria
}

func NewState(schema *Schema, current *domain.StoreID) *State {
	s := &State{schema: schema}
	s.current = copyStoreID(current)
	s.criteria = schema.Defaults(s.current)
	return s
}

func (s *State) Schema() *Schema {
	return s.schema
}

func (s *State) Criteria() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria.Clone()
}

func (s *State) Defaults() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema.Defaults(s.current)
}

func (s *State) CurrentStoreID() *domain.StoreID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStoreID(s.current)
}

func (s *State) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria.Search = text
}

func (s *State) SetStore(sel StoreSelector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria.Store = sel
}

// SetDateRange clears the range when spec is nil or of an unknown kind.
func (s *State) SetDateRange(spec *daterange.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria.DateRange = sanitizeDateRange(spec)
}

func (s *State) SetCustom(key string, v Value) error {
	cfg, ok := s.schema.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria.Custom[key] = cfg.Sanitize(v)
	return nil
}

// ToggleOption flips one option of a multiselect filter.
func (s *State) ToggleOption(key string, option string) error {
	return s.withSelection(key, func(sel *Selection) {
		sel.Toggle(option)
	})
}

// ToggleAllOptions selects every option of a multiselect filter, or clears
// them when all of them are already selected.
func (s *State) ToggleAllOptions(key string) error {
	return s.withSelection(key, func(sel *Selection) {
		sel.ToggleAll()
	})
}

// OptionSelection reports the tri-state selection of a multiselect filter.
func (s *State) OptionSelection(key string) (SelectionState, error) {
	cfg, err := s.multiselect(key)
	if err != nil {
		return SelectionNone, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewSelection(cfg.optionValues(), nil, s.criteria.Custom[key].Values).State(), nil
}

func (s *State) withSelection(key string, apply func(*Selection)) error {
	cfg, err := s.multiselect(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := NewSelection(cfg.optionValues(), nil, s.criteria.Custom[key].Values)
	apply(sel)
	s.criteria.Custom[key] = Value{Values: sel.Selected()}
	return nil
}

func (s *State) multiselect(key string) (CustomFilterConfig, error) {
	cfg, ok := s.schema.Lookup(key)
	if !ok {
		return CustomFilterConfig{}, fmt.Errorf("%w: %q", ErrUnknownFilter, key)
	}
	if cfg.Type != FieldMultiselect {
		return CustomFilterConfig{}, fmt.Errorf("%w: %q", ErrNotMultiple, key)
	}
	return cfg, nil
}

// Replace swaps the whole criteria. Custom values are sanitized and missing
// keys take their defaults; an undeclared key rejects the whole update.
func (s *State) Replace(c Criteria) error {
	next := c.Clone()
	for key := range next.Custom {
		if _, ok := s.schema.Lookup(key); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, key)
		}
	}
	for _, cfg := range s.schema.Configs() {
		v, ok := next.Custom[cfg.Key]
		if !ok {
			next.Custom[cfg.Key] = cfg.DefaultValue()
			continue
		}
		next.Custom[cfg.Key] = cfg.Sanitize(v)
	}
	next.DateRange = sanitizeDateRange(next.DateRange)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = next
	return nil
}

// Reset restores the defaults, re-anchoring the store to the current store.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = s.schema.Defaults(s.current)
}

// Rebind moves the state to a new current store and resets every filter.
func (s *State) Rebind(current *domain.StoreID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = copyStoreID(current)
	s.criteria = s.schema.Defaults(s.current)
}

func (s *State) Summary() []Badge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema.Summarize(s.criteria, s.schema.Defaults(s.current))
}

func (s *State) HasActiveFilters() bool {
	return len(s.Summary()) > 0
}

func sanitizeDateRange(spec *daterange.Spec) *daterange.Spec {
	if spec == nil {
		return nil
	}
	kind := daterange.ParseKind(string(spec.Kind))
	if !kind.Valid() || kind == daterange.KindNone {
		return nil
	}
	return &daterange.Spec{Kind: kind, Start: spec.Start, End: spec.End}
}

func copyStoreID(id *domain.StoreID) *domain.StoreID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
