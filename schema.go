package agentkit

import (
	"encoding/json"
	"maps"
	"reflect"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Kind is the shape tag of a schema node.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Schema is the parameter contract derived from a tool's declared types.
// Exactly one of {primitive kind, Enum, Items, Properties} characterizes a node;
// Required is only meaningful when Properties is set.
type Schema struct {
	Kind        Kind
	Description string
	Format      string
	Enum        []string
	Items       *Schema
	Properties  map[string]*Schema
	// Order lists property names in declaration order.
	Order    []string
	Required []string
	Default  any
}

// Enumerator is implemented by named types that behave as enumerations.
// String-kind types bind to the member name, integer-kind types to its index.
type Enumerator interface {
	EnumValues() []string
}

// SchemaDescriber is implemented by types that supply their own schema node
// instead of having it derived by reflection.
type SchemaDescriber interface {
	ParameterSchema() *Schema
}

var (
	customTypesMu sync.RWMutex
	customTypes   = map[reflect.Type]*Schema{
		reflect.TypeFor[time.Time](): {Kind: KindString, Format: "date-time"},
	}
)

// RegisterType registers a custom Go type to be mapped to a primitive schema kind.
// emptyInstance is a value of the type to register (e.g. uuid.UUID{}); it must not be nil.
// kind must be a primitive kind (string, number, integer, boolean). format is optional.
// Values of registered types are decoded with encoding/json, so the type should
// implement json.Unmarshaler or encoding.TextUnmarshaler when its JSON shape differs.
// Call RegisterType at application startup before the first Compile.
func RegisterType(emptyInstance any, kind Kind, format string) {
	if emptyInstance == nil {
		panic("agentkit: RegisterType emptyInstance must not be nil")
	}
	switch kind {
	case KindString, KindNumber, KindInteger, KindBoolean:
	default:
		panic("agentkit: RegisterType kind must be primitive, got " + string(kind))
	}
	t := reflect.TypeOf(emptyInstance)
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[t] = &Schema{Kind: kind, Format: format}
}

func registeredType(t reflect.Type) (*Schema, bool) {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	s, ok := customTypes[t]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// buildTypeSchemas returns registered types as jsonschema-go schemas for use in ForOptions.
func buildTypeSchemas() map[reflect.Type]*jsonschema.Schema {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	out := make(map[reflect.Type]*jsonschema.Schema, len(customTypes))
	for t, s := range customTypes {
		out[t] = &jsonschema.Schema{Type: string(s.Kind), Format: s.Format}
	}
	return out
}

// Clone returns a deep copy of the schema tree.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Enum = append([]string(nil), s.Enum...)
	c.Order = append([]string(nil), s.Order...)
	c.Required = append([]string(nil), s.Required...)
	c.Items = s.Items.Clone()
	if s.Properties != nil {
		c.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v.Clone()
		}
	}
	return &c
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// JSONSchema converts the node into a JSON Schema tree suitable for LLM tool definitions.
// Enumerations become string schemas with an enum list.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	if s == nil {
		return nil
	}
	out := &jsonschema.Schema{
		Description: s.Description,
		Format:      s.Format,
	}
	switch s.Kind {
	case KindEnum:
		out.Type = "string"
		out.Enum = make([]any, len(s.Enum))
		for i, v := range s.Enum {
			out.Enum[i] = v
		}
	case KindArray:
		out.Type = "array"
		out.Items = s.Items.JSONSchema()
	case KindObject:
		out.Type = "object"
		if s.Properties != nil {
			out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
			for name, p := range s.Properties {
				out.Properties[name] = p.JSONSchema()
			}
		}
		if len(s.Required) > 0 {
			out.Required = append([]string(nil), s.Required...)
		}
	default:
		out.Type = string(s.Kind)
	}
	if s.Default != nil {
		if b, err := json.Marshal(s.Default); err == nil {
			out.Default = b
		}
	}
	return out
}

// Map returns the JSON Schema as a generic map (e.g. for provider SDK parameter types).
// Object nodes always carry a properties map, which some providers require.
func (s *Schema) Map() map[string]any {
	data, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	walkSchema(m, func(n map[string]any) {
		if n["type"] == "object" {
			if _, ok := n["properties"]; !ok {
				n["properties"] = map[string]any{}
			}
		}
	})
	return maps.Clone(m)
}
