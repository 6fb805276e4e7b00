package agentkit

import (
	"bytes"
	"encoding/json"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument structs that need custom business validation.
// Called after binding, before the entry operation runs.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (e.g. map[string]any from json.Unmarshal).
// Both *jsonschema.Resolved and the argument validator implement it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs Layer 1 validation on already-parsed value v.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Layer 2 (Validatable) if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// argumentValidator checks incoming tool arguments against the compiled parameter schema.
type argumentValidator struct {
	schema *santhosh.Schema
}

const argumentSchemaURL = "mem://agentkit/arguments.json"

func newArgumentValidator(s *Schema) (*argumentValidator, error) {
	data, err := json.Marshal(s.Map())
	if err != nil {
		return nil, fmt.Errorf("marshal argument schema: %w", err)
	}
	doc, err := santhosh.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse argument schema: %w", err)
	}
	c := santhosh.NewCompiler()
	if err := c.AddResource(argumentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add argument schema: %w", err)
	}
	compiled, err := c.Compile(argumentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile argument schema: %w", err)
	}
	return &argumentValidator{schema: compiled}, nil
}

// Validate implements schemaValidator. v must come from santhosh.UnmarshalJSON.
func (a *argumentValidator) Validate(v any) error {
	return a.schema.Validate(v)
}

// check parses raw arguments, drops explicit nulls and validates the rest.
func (a *argumentValidator) check(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	v, err := santhosh.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ClientError{Reason: errNotObject.Error(), Err: err}
	}
	return validateAgainstSchema(a, dropNulls(v))
}

// dropNulls removes null object members recursively; null is equivalent to absent.
func dropNulls(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			if item == nil {
				delete(x, k)
				continue
			}
			x[k] = dropNulls(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = dropNulls(item)
		}
		return x
	default:
		return v
	}
}

// runLayer2Validation runs Validatable.Validate() on the bound value; if the value does not
// implement Validatable, it tries its address (pointer receiver).
func runLayer2Validation(v any, addr any) error {
	if err := validateCustom(v); err != nil {
		return err
	}
	if _, ok := v.(Validatable); ok || addr == nil {
		return nil
	}
	return validateCustom(addr)
}
