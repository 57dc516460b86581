package filter

type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionSome
	SelectionAll
)

func (s SelectionState) String() string {
	switch s {
	case SelectionAll:
		return "all"
	case SelectionSome:
		return "some"
	default:
		return "none"
	}
}

// Selection is a multi-select over a fixed universe of keys, optionally
// partitioned into named groups. The "all" state is derived, never stored.
type Selection struct {
	universe []string
	known    map[string]struct{}
	groups   map[string][]string
	selected map[string]struct{}
}

// NewSelection ignores selected keys and group members that are not in the
// universe.
func NewSelection(universe []string, groups map[string][]string, selected []string) *Selection {
	s := &Selection{
		universe: dedupe(universe),
		known:    make(map[string]struct{}, len(universe)),
		groups:   make(map[string][]string, len(groups)),
		selected: make(map[string]struct{}, len(selected)),
	}
	for _, key := range s.universe {
		s.known[key] = struct{}{}
	}
	for name, members := range groups {
		kept := make([]string, 0, len(members))
		for _, m := range dedupe(members) {
			if _, ok := s.known[m]; ok {
				kept = append(kept, m)
			}
		}
		s.groups[name] = kept
	}
	for _, key := range selected {
		if _, ok := s.known[key]; ok {
			s.selected[key] = struct{}{}
		}
	}
	return s
}

func (s *Selection) Toggle(key string) bool {
	if _, ok := s.known[key]; !ok {
		return false
	}
	if _, on := s.selected[key]; on {
		delete(s.selected, key)
	} else {
		s.selected[key] = struct{}{}
	}
	return true
}

// ToggleGroup removes the group when every member is selected, otherwise
// adds all of its members.
func (s *Selection) ToggleGroup(name string) bool {
	members, ok := s.groups[name]
	if !ok {
		return false
	}
	if s.allOf(members) {
		for _, m := range members {
			delete(s.selected, m)
		}
		return true
	}
	for _, m := range members {
		s.selected[m] = struct{}{}
	}
	return true
}

func (s *Selection) ToggleAll() {
	if s.allOf(s.universe) {
		s.selected = make(map[string]struct{}, len(s.universe))
		return
	}
	for _, key := range s.universe {
		s.selected[key] = struct{}{}
	}
}

func (s *Selection) IsSelected(key string) bool {
	_, ok := s.selected[key]
	return ok
}

// Selected returns the selected keys in universe order.
func (s *Selection) Selected() []string {
	out := make([]string, 0, len(s.selected))
	for _, key := range s.universe {
		if _, ok := s.selected[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

func (s *Selection) State() SelectionState {
	return s.stateOf(s.universe)
}

func (s *Selection) GroupState(name string) SelectionState {
	return s.stateOf(s.groups[name])
}

func (s *Selection) stateOf(keys []string) SelectionState {
	if len(keys) == 0 {
		return SelectionNone
	}
	count := 0
	for _, key := range keys {
		if _, ok := s.selected[key]; ok {
			count++
		}
	}
	switch count {
	case 0:
		return SelectionNone
	case len(keys):
		return SelectionAll
	default:
		return SelectionSome
	}
}

func (s *Selection) allOf(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if _, ok := s.selected[key]; !ok {
			return false
		}
	}
	return true
}
