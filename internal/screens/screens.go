// Package screens declares the back-office list screens: where each one is
// served, which columns it can search and sort, and its custom filters.
package screens

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator"

	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/query"
)

var (
	ErrUnknownScreen = errors.New("unknown screen")
	ErrInvalidScreen = errors.New("invalid screen declaration")
)

// Op is how a filter parameter is matched against its column.
type Op string

const (
	OpEq   Op = "eq"
	OpIn   Op = "in"
	OpGte  Op = "gte"
	OpLte  Op = "lte"
	OpLike Op = "like"
)

// Field is a custom filter plus the column it constrains.
type Field struct {
	filter.CustomFilterConfig
	Column string `toml:"column" json:"column,omitempty" validate:"omitempty,ident"`
	Op     Op     `toml:"op" json:"op,omitempty" validate:"omitempty,oneof=eq in gte lte like"`
}

func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Key
}

func (f Field) Operator() Op {
	if f.Op != "" {
		return f.Op
	}
	switch f.Type {
	case filter.FieldMultiselect:
		return OpIn
	case filter.FieldText:
		return OpLike
	default:
		return OpEq
	}
}

// Param is the query key the field is emitted under.
func (f Field) Param() string {
	key := f.ParamKey()
	if f.Type == filter.FieldMultiselect && f.Encoding == filter.EncodingArray && !strings.HasSuffix(key, "[]") {
		key += "[]"
	}
	return key
}

// Values decodes the field's parameter back into its list of values.
func (f Field) Values(p query.Params) []string {
	raw := p.Values(f.Param())
	if f.Type != filter.FieldMultiselect || f.Encoding == filter.EncodingArray {
		return raw
	}
	var out []string
	for _, joined := range raw {
		for _, part := range strings.Split(joined, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type Screen struct {
	Name             string   `toml:"name" json:"name" validate:"required,ident"`
	Title            string   `toml:"title" json:"title"`
	Path             string   `toml:"path" json:"path" validate:"required,apipath"`
	Table            string   `toml:"table" json:"table" validate:"required,ident"`
	StoreColumn      string   `toml:"store_column" json:"store_column,omitempty" validate:"omitempty,ident"`
	SearchColumns    []string `toml:"search_columns" json:"search_columns" validate:"dive,ident"`
	DateColumn       string   `toml:"date_column" json:"date_column,omitempty" validate:"omitempty,ident"`
	StartKey         string   `toml:"start_key" json:"start_key,omitempty"`
	EndKey           string   `toml:"end_key" json:"end_key,omitempty"`
	Columns          []string `toml:"columns" json:"columns" validate:"dive,ident"`
	Sortable         []string `toml:"sortable" json:"sortable" validate:"dive,ident"`
	DefaultSort      string   `toml:"default_sort" json:"default_sort,omitempty" validate:"omitempty,ident"`
	DefaultDirection string   `toml:"default_direction" json:"default_direction,omitempty" validate:"omitempty,oneof=asc desc"`
	Filters          []Field  `toml:"filters" json:"filters" validate:"dive"`

	schema *filter.Schema
}

var (
	identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	pathPattern  = regexp.MustCompile(`^/[A-Za-z0-9_\-/]*$`)
)

var validate = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("apipath", func(fl validator.FieldLevel) bool {
		return pathPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("filterkey", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(strings.TrimSuffix(fl.Field().String(), "[]"))
	})
	return v
}()

// Prepare validates the declaration and builds its filter schema.
func (s *Screen) Prepare() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: screen %q: %v", ErrInvalidScreen, s.Name, err)
	}
	if s.DefaultSort != "" && !s.CanSort(s.DefaultSort) {
		return fmt.Errorf("%w: screen %q: default sort %q is not sortable", ErrInvalidScreen, s.Name, s.DefaultSort)
	}
	if (s.StartKey == "") != (s.EndKey == "") {
		return fmt.Errorf("%w: screen %q: start_key and end_key go together", ErrInvalidScreen, s.Name)
	}
	configs := make([]filter.CustomFilterConfig, 0, len(s.Filters))
	for _, f := range s.Filters {
		configs = append(configs, f.CustomFilterConfig)
	}
	schema, err := filter.NewSchema(configs...)
	if err != nil {
		return fmt.Errorf("screen %q: %w", s.Name, err)
	}
	s.schema = schema
	return nil
}

func (s *Screen) Schema() *filter.Schema {
	return s.schema
}

func (s *Screen) DateKeys() query.DateKeys {
	if s.StartKey != "" && s.EndKey != "" {
		return query.DateKeys{Start: s.StartKey, End: s.EndKey}
	}
	return query.DefaultDateKeys
}

func (s *Screen) StoreColumnName() string {
	if s.StoreColumn != "" {
		return s.StoreColumn
	}
	return "store_id"
}

func (s *Screen) CanSort(field string) bool {
	for _, f := range s.Sortable {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Screen) DefaultSortState() query.Sort {
	return query.Sort{Field: s.DefaultSort, Direction: query.ParseDirection(s.DefaultDirection)}
}

func (s *Screen) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

type Registry struct {
	screens map[string]*Screen
}

func NewRegistry(list ...Screen) (*Registry, error) {
	r := &Registry{screens: make(map[string]*Screen, len(list))}
	for _, s := range list {
		if err := r.put(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) put(s Screen) error {
	screen := s
	if err := screen.Prepare(); err != nil {
		return err
	}
	r.screens[screen.Name] = &screen
	return nil
}

func (r *Registry) Get(name string) (*Screen, error) {
	s, ok := r.screens[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return s, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.screens))
	for name := range r.screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type file struct {
	Screens []Screen `toml:"screens"`
}

// Load starts from the builtin screens and applies the TOML file at path on
// top: an entry whose name matches a builtin replaces it. An empty path or a
// missing file yields the builtins alone.
func Load(path string) (*Registry, error) {
	r := Builtin()
	if strings.TrimSpace(path) == "" {
		return r, nil
	}
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("decode screens file: %w", err)
	}
	for _, s := range f.Screens {
		if err := r.put(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
