// Package filter holds list-screen filter criteria, the declarative custom
// filter schema, and the active-filter summary derived from both.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator"

	"kasirinaja/backoffice/internal/domain"
)

// All is the enumerated "no constraint" value of a select filter.
const All = "all"

var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrInvalidSchema = errors.New("invalid filter schema")
	ErrNotMultiple   = errors.New("filter is not a multiselect")
)

type FieldType string

const (
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
)

// Encoding controls how a multiselect value is flattened into query params.
type Encoding string

const (
	EncodingJoin  Encoding = "join"
	EncodingArray Encoding = "array"
)

type Option struct {
	Value string `toml:"value" json:"value" validate:"required"`
	Label string `toml:"label" json:"label"`
}

// CustomFilterConfig declares one entity-specific filter field.
type CustomFilterConfig struct {
	Key           string    `toml:"key" json:"key" validate:"required,filterkey"`
	Label         string    `toml:"label" json:"label"`
	Type          FieldType `toml:"type" json:"type" validate:"required,oneof=select multiselect text number"`
	Options       []Option  `toml:"options" json:"options,omitempty" validate:"dive"`
	Default       string    `toml:"default" json:"default,omitempty"`
	DefaultValues []string  `toml:"default_values" json:"default_values,omitempty"`
	Param         string    `toml:"param" json:"param,omitempty" validate:"omitempty,filterkey"`
	Encoding      Encoding  `toml:"encoding" json:"encoding,omitempty" validate:"omitempty,oneof=join array"`
}

// Value is the current value of a custom filter. Scalar is meaningful for
// select, text and number filters; Values for multiselect.
type Value struct {
	Scalar string   `json:"scalar,omitempty"`
	Values []string `json:"values,omitempty"`
}

func Scalar(v string) Value {
	return Value{Scalar: v}
}

func Multi(values ...string) Value {
	return Value{Values: append([]string(nil), values...)}
}

func (v Value) clone() Value {
	return Value{Scalar: v.Scalar, Values: append([]string(nil), v.Values...)}
}

func (c CustomFilterConfig) ParamKey() string {
	if c.Param != "" {
		return c.Param
	}
	return c.Key
}

func (c CustomFilterConfig) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

func (c CustomFilterConfig) DefaultValue() Value {
	if c.Type == FieldMultiselect {
		return Value{Values: dedupe(c.DefaultValues)}
	}
	return Value{Scalar: strings.TrimSpace(c.Default)}
}

func (c CustomFilterConfig) hasOption(value string) bool {
	for _, opt := range c.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func (c CustomFilterConfig) optionLabel(value string) string {
	for _, opt := range c.Options {
		if opt.Value == value && opt.Label != "" {
			return opt.Label
		}
	}
	return value
}

func (c CustomFilterConfig) optionValues() []string {
	values := make([]string, 0, len(c.Options))
	for _, opt := range c.Options {
		values = append(values, opt.Value)
	}
	return values
}

// Sanitize corrects malformed input silently: anything that cannot be a
// valid value for the declared type falls back to the declared default.
func (c CustomFilterConfig) Sanitize(v Value) Value {
	switch c.Type {
	case FieldMultiselect:
		picked := make([]string, 0, len(v.Values))
		for _, raw := range v.Values {
			val := strings.TrimSpace(raw)
			if val == "" {
				continue
			}
			if val == All {
				return c.DefaultValue()
			}
			if len(c.Options) > 0 && !c.hasOption(val) {
				continue
			}
			picked = append(picked, val)
		}
		return Value{Values: dedupe(picked)}
	case FieldSelect:
		val := strings.TrimSpace(v.Scalar)
		if val == "" {
			return c.DefaultValue()
		}
		if val != All && len(c.Options) > 0 && !c.hasOption(val) {
			return c.DefaultValue()
		}
		return Value{Scalar: val}
	case FieldNumber:
		val := strings.TrimSpace(v.Scalar)
		if val == "" {
			return c.DefaultValue()
		}
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return c.DefaultValue()
		}
		return Value{Scalar: val}
	default:
		return Value{Scalar: strings.TrimSpace(v.Scalar)}
	}
}

// Equal compares two values by the declared type: set equality for
// multiselect, numeric equality for number, trimmed equality otherwise.
func (c CustomFilterConfig) Equal(a Value, b Value) bool {
	switch c.Type {
	case FieldMultiselect:
		return sameSet(a.Values, b.Values)
	case FieldNumber:
		left := strings.TrimSpace(a.Scalar)
		right := strings.TrimSpace(b.Scalar)
		lf, lerr := strconv.ParseFloat(left, 64)
		rf, rerr := strconv.ParseFloat(right, 64)
		if lerr == nil && rerr == nil {
			return lf == rf
		}
		return left == right
	default:
		return strings.TrimSpace(a.Scalar) == strings.TrimSpace(b.Scalar)
	}
}

func (c CustomFilterConfig) IsDefault(v Value) bool {
	return c.Equal(v, c.DefaultValue())
}

func (c CustomFilterConfig) display(v Value) string {
	if c.Type == FieldMultiselect {
		labels := make([]string, 0, len(v.Values))
		for _, val := range v.Values {
			labels = append(labels, c.optionLabel(val))
		}
		return strings.Join(labels, ", ")
	}
	return c.optionLabel(strings.TrimSpace(v.Scalar))
}

// Schema is the validated set of custom filters declared for one screen.
type Schema struct {
	configs []CustomFilterConfig
	byKey   map[string]int
}

var filterKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\[\])?$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("filterkey", func(fl validator.FieldLevel) bool {
		return filterKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

var validate = newValidator()

// NewSchema validates every declaration: well-formed keys and types, unique
// keys, select and multiselect defaults within the declared options, and
// number defaults that parse.
func NewSchema(configs ...CustomFilterConfig) (*Schema, error) {
	s := &Schema{
		configs: make([]CustomFilterConfig, 0, len(configs)),
		byKey:   make(map[string]int, len(configs)),
	}
	for _, cfg := range configs {
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("%w: filter %q: %s", ErrInvalidSchema, cfg.Key, describeValidation(err))
		}
		if _, dup := s.byKey[cfg.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate filter %q", ErrInvalidSchema, cfg.Key)
		}
		if err := checkDefault(cfg); err != nil {
			return nil, fmt.Errorf("%w: filter %q: %v", ErrInvalidSchema, cfg.Key, err)
		}
		s.byKey[cfg.Key] = len(s.configs)
		s.configs = append(s.configs, cfg)
	}
	return s, nil
}

func MustSchema(configs ...CustomFilterConfig) *Schema {
	s, err := NewSchema(configs...)
	if err != nil {
		panic(err)
	}
	return s
}

func checkDefault(cfg CustomFilterConfig) error {
	switch cfg.Type {
	case FieldSelect:
		def := strings.TrimSpace(cfg.Default)
		if def == "" {
			return errors.New("select filter needs a default")
		}
		if def != All && len(cfg.Options) > 0 && !cfg.hasOption(def) {
			return fmt.Errorf("default %q is not a declared option", def)
		}
	case FieldMultiselect:
		if len(cfg.Options) == 0 {
			return errors.New("multiselect filter needs options")
		}
		for _, def := range cfg.DefaultValues {
			if !cfg.hasOption(def) {
				return fmt.Errorf("default %q is not a declared option", def)
			}
		}
	case FieldNumber:
		def := strings.TrimSpace(cfg.Default)
		if def == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(def, 64); err != nil {
			return fmt.Errorf("default %q is not a number", def)
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of %s", fe.Field(), fe.Param()))
		case "filterkey":
			msgs = append(msgs, fmt.Sprintf("field %s must be a lowercase identifier", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

func (s *Schema) Configs() []CustomFilterConfig {
	if s == nil {
		return nil
	}
	out := make([]CustomFilterConfig, len(s.configs))
	copy(out, s.configs)
	return out
}

func (s *Schema) Lookup(key string) (CustomFilterConfig, bool) {
	if s == nil {
		return CustomFilterConfig{}, false
	}
	idx, ok := s.byKey[key]
	if !ok {
		return CustomFilterConfig{}, false
	}
	return s.configs[idx], true
}

// Defaults builds the criteria a screen starts from. The store selector is
// anchored to the current store when one is known.
func (s *Schema) Defaults(current *domain.StoreID) Criteria {
	c := Criteria{
		Store:  CurrentStore(),
		Custom: make(map[string]Value),
	}
	if current != nil {
		c.Store = SpecificStore(*current)
	}
	if s == nil {
		return c
	}
	for _, cfg := range s.configs {
		c.Custom[cfg.Key] = cfg.DefaultValue()
	}
	return c
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameSet(a []string, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, v := range a {
		left[strings.TrimSpace(v)] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, v := range b {
		right[strings.TrimSpace(v)] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}
