package api

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/stepwise/formwizard/pkg/util"
)

type (
	// Name identifies a wizard step. Declaration order is significant
	Name string

	// FieldType enumerates the supported field kinds
	FieldType string

	// FieldSpec describes validation rules for a single form field
	FieldSpec struct {
		Min       *float64  `json:"min,omitempty"`
		Max       *float64  `json:"max,omitempty"`
		Type      FieldType `json:"type"`
		Label     string    `json:"label,omitempty"`
		Choices   []string  `json:"choices,omitempty"`
		MinLength int       `json:"min_length,omitempty"`
		MaxLength int       `json:"max_length,omitempty"`
		Required  bool      `json:"required,omitempty"`
	}

	// Schema describes the fields of one wizard step. Order lists field
	// names in rendering order; fields absent from Order sort after it
	Schema struct {
		Fields  map[string]*FieldSpec `json:"fields"`
		Order   []string              `json:"order,omitempty"`
		declErr error
	}

	// RawValues is submitted form input before validation, in the shape of
	// url.Values
	RawValues map[string][]string

	// Values holds normalized field values after validation
	Values map[string]any

	// FieldErrors maps field names to validation messages
	FieldErrors map[string]string
)

const (
	FieldString FieldType = "string"
	FieldText   FieldType = "text"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldEmail  FieldType = "email"
	FieldChoice FieldType = "choice"
	FieldFile   FieldType = "file"
)

var (
	ErrSchemaNoFields    = errors.New("schema has no fields")
	ErrFieldNameEmpty    = errors.New("field name empty")
	ErrFieldNil          = errors.New("field has nil spec")
	ErrInvalidFieldType  = errors.New("invalid field type")
	ErrChoicesRequired   = errors.New("choice field requires choices")
	ErrNegativeLength    = errors.New("field length cannot be negative")
	ErrMaxLengthTooSmall = errors.New("max_length must be >= min_length")
	ErrMaxBoundTooSmall  = errors.New("max must be >= min")
	ErrOrderUnknownField = errors.New("order references unknown field")
	ErrSchemaPairs       = errors.New("schema pairs must alternate name and spec")
)

var errRequired = errors.New("this field is required")

var (
	validFieldTypes = util.SetOf(
		FieldString,
		FieldText,
		FieldInt,
		FieldFloat,
		FieldBool,
		FieldEmail,
		FieldChoice,
		FieldFile,
	)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	truthyValues = util.SetOf("1", "true", "on", "yes")
	falsyValues  = util.SetOf("", "0", "false", "off", "no")
)

// NewSchema constructs a schema whose field order follows the given
// name/spec pairs. A malformed pair list yields a schema whose Validate
// reports ErrSchemaPairs
func NewSchema(pairs ...any) *Schema {
	s := &Schema{Fields: map[string]*FieldSpec{}}
	if len(pairs)%2 != 0 {
		s.declErr = ErrSchemaPairs
		return s
	}
	for i := 0; i < len(pairs); i += 2 {
		name, nameOK := pairs[i].(string)
		spec, specOK := pairs[i+1].(*FieldSpec)
		if !nameOK || !specOK {
			s.declErr = fmt.Errorf("%w: pair %d", ErrSchemaPairs, i/2)
			return s
		}
		s.Fields[name] = spec
		s.Order = append(s.Order, name)
	}
	return s
}

// Validate checks the schema declaration itself, not submitted data
func (s *Schema) Validate() error {
	if s.declErr != nil {
		return s.declErr
	}
	if len(s.Fields) == 0 {
		return ErrSchemaNoFields
	}
	for name, spec := range s.Fields {
		if name == "" {
			return ErrFieldNameEmpty
		}
		if spec == nil {
			return fmt.Errorf("%w: %s", ErrFieldNil, name)
		}
		if err := spec.Validate(name); err != nil {
			return err
		}
	}
	for _, name := range s.Order {
		if _, ok := s.Fields[name]; !ok {
			return fmt.Errorf("%w: %s", ErrOrderUnknownField, name)
		}
	}
	return nil
}

// FieldNames returns field names in declared order, with any fields missing
// from Order sorted after it
func (s *Schema) FieldNames() []string {
	names := slices.Clone(s.Order)
	seen := util.SetOf(names...)
	var rest []string
	for name := range s.Fields {
		if !seen.Contains(name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// HasFileFields reports whether any field expects an upload
func (s *Schema) HasFileFields() bool {
	for _, spec := range s.Fields {
		if spec != nil && spec.Type == FieldFile {
			return true
		}
	}
	return false
}

// Clean validates raw submitted data and uploads against the schema. It
// returns the normalized values and, when any field fails, a non-empty
// error map
func (s *Schema) Clean(raw RawValues, files Files) (Values, FieldErrors) {
	values := Values{}
	fieldErrs := FieldErrors{}

	for _, name := range s.FieldNames() {
		spec := s.Fields[name]
		if spec.Type == FieldFile {
			ref, ok := files[name]
			if !ok {
				if spec.Required {
					fieldErrs[name] = "this field requires a file"
				}
				continue
			}
			values[name] = ref
			continue
		}

		value, err := spec.Clean(firstValue(raw, name))
		if err != nil {
			fieldErrs[name] = err.Error()
			continue
		}
		if value != nil {
			values[name] = value
		}
	}

	if len(fieldErrs) == 0 {
		return values, nil
	}
	return nil, fieldErrs
}

// Validate checks that a field spec declaration is internally consistent
func (f *FieldSpec) Validate(name string) error {
	if !validFieldTypes.Contains(f.Type) {
		return fmt.Errorf("%w: %s (%s)", ErrInvalidFieldType, f.Type, name)
	}
	if f.Type == FieldChoice && len(f.Choices) == 0 {
		return fmt.Errorf("%w: %s", ErrChoicesRequired, name)
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeLength, name)
	}
	if f.MaxLength != 0 && f.MaxLength < f.MinLength {
		return fmt.Errorf("%w: %s", ErrMaxLengthTooSmall, name)
	}
	if f.Min != nil && f.Max != nil && *f.Max < *f.Min {
		return fmt.Errorf("%w: %s", ErrMaxBoundTooSmall, name)
	}
	return nil
}

// Clean normalizes a single raw input value. A nil result with a nil error
// means the optional field was left blank. Required bool fields must be
// submitted truthy, since an unchecked checkbox arrives blank or falsy
func (f *FieldSpec) Clean(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.Required {
			return nil, errRequired
		}
		if f.Type == FieldBool {
			return false, nil
		}
		return nil, nil
	}

	switch f.Type {
	case FieldString, FieldText:
		return f.cleanString(raw)
	case FieldInt:
		return f.cleanInt(raw)
	case FieldFloat:
		return f.cleanFloat(raw)
	case FieldBool:
		return f.cleanBool(raw)
	case FieldEmail:
		return cleanEmail(raw)
	case FieldChoice:
		return f.cleanChoice(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFieldType, f.Type)
	}
}

func (f *FieldSpec) cleanString(raw string) (any, error) {
	if len(raw) < f.MinLength {
		return nil, fmt.Errorf("must be at least %d characters", f.MinLength)
	}
	if f.MaxLength != 0 && len(raw) > f.MaxLength {
		return nil, fmt.Errorf("must be at most %d characters", f.MaxLength)
	}
	return raw, nil
}

func (f *FieldSpec) cleanInt(raw string) (any, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New("must be a whole number")
	}
	if err := f.checkBounds(float64(v)); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *FieldSpec) cleanFloat(raw string) (any, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("must be a number")
	}
	if err := f.checkBounds(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *FieldSpec) checkBounds(v float64) error {
	if f.Min != nil && v < *f.Min {
		return fmt.Errorf("must be at least %v", *f.Min)
	}
	if f.Max != nil && v > *f.Max {
		return fmt.Errorf("must be at most %v", *f.Max)
	}
	return nil
}

func (f *FieldSpec) cleanChoice(raw string) (any, error) {
	if !slices.Contains(f.Choices, raw) {
		return nil, fmt.Errorf("%q is not a valid choice", raw)
	}
	return raw, nil
}

func (f *FieldSpec) cleanBool(raw string) (any, error) {
	lower := strings.ToLower(raw)
	if truthyValues.Contains(lower) {
		return true, nil
	}
	if !falsyValues.Contains(lower) {
		return nil, errors.New("must be a boolean value")
	}
	if f.Required {
		return nil, errRequired
	}
	return false, nil
}

func cleanEmail(raw string) (any, error) {
	if !emailPattern.MatchString(raw) {
		return nil, errors.New("must be a valid email address")
	}
	return strings.ToLower(raw), nil
}

// Merge overlays other onto a copy of the receiver
func (v Values) Merge(other Values) Values {
	res := make(Values, len(v)+len(other))
	for key, val := range v {
		res[key] = val
	}
	for key, val := range other {
		res[key] = val
	}
	return res
}

// Get returns the first submitted value for name
func (r RawValues) Get(name string) string {
	return firstValue(r, name)
}

func firstValue(raw RawValues, name string) string {
	if vs, ok := raw[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
