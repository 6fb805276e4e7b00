package agentkit

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	enumeratorType      = reflect.TypeFor[Enumerator]()
	describerType       = reflect.TypeFor[SchemaDescriber]()
	clientType          = reflect.TypeFor[InferenceClient]()
	agentType           = reflect.TypeFor[Agent]()
)

type capability int

const (
	capNone capability = iota
	capClient
	capAgent
)

// field is the walked metadata of one struct field, shared by the walker and the binder.
type field struct {
	name        string
	index       []int
	typ         reflect.Type
	description string
	defaultTag  string
	hasDefault  bool
	optional    bool
	capability  capability
}

var fieldCache sync.Map // reflect.Type -> []field

// fieldsOf lists the bindable fields of struct type t in declaration order.
// Anonymous struct fields without a json name are flattened into the parent.
func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	var out []field
	collectFields(t, nil, &out)
	actual, _ := fieldCache.LoadOrStore(t, out)
	return actual.([]field)
}

func collectFields(t reflect.Type, parent []int, out *[]field) {
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		index := append(slices.Clone(parent), i)
		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Struct {
				collectFields(ft, index, out)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		f := field{
			name:        name,
			index:       index,
			typ:         sf.Type,
			description: sf.Tag.Get("description"),
			optional:    sf.Type.Kind() == reflect.Pointer || strings.Contains(opts, "omitempty"),
		}
		f.defaultTag, f.hasDefault = sf.Tag.Lookup("default")
		switch sf.Type {
		case clientType:
			f.capability = capClient
		case agentType:
			f.capability = capAgent
		}
		*out = append(*out, f)
	}
}

// walker maps Go types to Schema nodes. A visited-type path guards against
// self-referential types; maxDepth caps nesting when positive.
type walker struct {
	maxDepth int
}

// Derive maps t to a schema node with the given description.
// Self-referential struct types fail with ErrRecursiveType.
func Derive(t reflect.Type, description string) (*Schema, error) {
	return (&walker{}).derive(t, description, nil, 0)
}

// parameters derives the top-level object schema of an entry argument struct.
func (w *walker) parameters(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entry arguments must be a struct, got %s: %w", t, ErrUnsupportedType)
	}
	return w.object(t, "Parameter", "", []reflect.Type{t}, 0)
}

func (w *walker) derive(t reflect.Type, description string, path []reflect.Type, depth int) (*Schema, error) {
	if w.maxDepth > 0 && depth > w.maxDepth {
		return nil, fmt.Errorf("%s at depth %d: %w", t, depth, ErrMaxDepth)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := registeredType(t); ok {
		s.Description = description
		return s, nil
	}
	if d, ok := implementsDescriber(t); ok {
		s := d.ParameterSchema().Clone()
		if s == nil {
			return nil, fmt.Errorf("%s returned a nil schema: %w", t, ErrUnsupportedType)
		}
		if s.Description == "" {
			s.Description = description
		}
		return s, nil
	}
	if values, ok := enumValues(t); ok {
		switch t.Kind() {
		case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return nil, fmt.Errorf("enum %s must have a string or integer kind: %w", t, ErrUnsupportedType)
		}
		return &Schema{Kind: KindEnum, Description: description, Enum: values}, nil
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return &Schema{Kind: KindString, Description: description}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Kind: KindBoolean, Description: description}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Kind: KindInteger, Description: description}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Kind: KindNumber, Description: description}, nil
	case reflect.String:
		return &Schema{Kind: KindString, Description: description}, nil
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Kind: KindString, Format: "byte", Description: description}, nil
		}
		items, err := w.derive(t.Elem(), "item of "+description, path, depth+1)
		if err != nil {
			return nil, err
		}
		return &Schema{Kind: KindArray, Description: description, Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key %s: %w", t.Key(), ErrUnsupportedType)
		}
		return &Schema{Kind: KindObject, Description: description}, nil
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return nil, fmt.Errorf("interface %s: %w", t, ErrUnsupportedType)
		}
		return &Schema{Kind: KindObject, Description: description}, nil
	case reflect.Struct:
		if slices.Contains(path, t) {
			return nil, fmt.Errorf("%s: %w", t, ErrRecursiveType)
		}
		path = append(slices.Clone(path), t)
		return w.object(t, "Property", description, path, depth+1)
	default:
		return nil, fmt.Errorf("%s: %w", t, ErrUnsupportedType)
	}
}

// object walks the fields of struct t. prefix names undocumented fields.
func (w *walker) object(t reflect.Type, prefix, description string, path []reflect.Type, depth int) (*Schema, error) {
	s := &Schema{
		Kind:        KindObject,
		Description: description,
		Properties:  make(map[string]*Schema),
	}
	for _, f := range fieldsOf(t) {
		if f.capability != capNone {
			continue
		}
		desc := f.description
		if desc == "" {
			desc = prefix + " " + f.name
		}
		prop, err := w.derive(f.typ, desc, path, depth)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.name, err)
		}
		if f.hasDefault {
			def, err := parseDefault(f.typ, f.defaultTag)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.name, err)
			}
			prop.Default = def
		}
		if _, dup := s.Properties[f.name]; !dup {
			s.Order = append(s.Order, f.name)
		}
		s.Properties[f.name] = prop
		if !f.optional && !f.hasDefault && !s.IsRequired(f.name) {
			s.Required = append(s.Required, f.name)
		}
	}
	return s, nil
}

// parseDefault checks that a default tag literal converts into t and returns
// the value shown in the schema.
func parseDefault(t reflect.Type, literal string) (any, error) {
	raw := defaultJSON(t, literal)
	v, err := convert(t, raw)
	if err != nil {
		return nil, fmt.Errorf("%w %q for %s: %w", ErrInvalidDefault, literal, t, err)
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if _, ok := enumValues(base); ok {
		return literal, nil
	}
	var shown any
	if err := json.Unmarshal(raw, &shown); err != nil {
		return v.Interface(), nil
	}
	return shown, nil
}

// defaultJSON renders a default tag literal as JSON for the target type.
// String-shaped targets take the literal verbatim; everything else is parsed as JSON.
func defaultJSON(t reflect.Type, literal string) json.RawMessage {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	stringShaped := t.Kind() == reflect.String
	if _, ok := enumValues(t); ok {
		stringShaped = true
	}
	if s, ok := registeredType(t); ok && s.Kind == KindString {
		stringShaped = true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		stringShaped = true
	}
	if !stringShaped {
		return json.RawMessage(literal)
	}
	b, _ := json.Marshal(literal)
	return b
}

func enumValues(t reflect.Type) ([]string, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(enumeratorType) {
		return reflect.Zero(t).Interface().(Enumerator).EnumValues(), true
	}
	if reflect.PointerTo(t).Implements(enumeratorType) {
		return reflect.New(t).Interface().(Enumerator).EnumValues(), true
	}
	return nil, false
}

func implementsDescriber(t reflect.Type) (SchemaDescriber, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(describerType) {
		return reflect.Zero(t).Interface().(SchemaDescriber), true
	}
	if reflect.PointerTo(t).Implements(describerType) {
		return reflect.New(t).Interface().(SchemaDescriber), true
	}
	return nil, false
}
