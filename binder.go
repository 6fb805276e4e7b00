package agentkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

var errNotObject = errors.New("arguments must be a JSON object")

// bind converts model-supplied JSON arguments into a value of the entry argument type.
// Capability fields are filled from inj and never read from args.
func bind(argsType reflect.Type, args json.RawMessage, inj Injection) (reflect.Value, error) {
	structType := argsType
	for structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	fields, err := decodeObject(args)
	if err != nil {
		return reflect.Value{}, &ClientError{Reason: errNotObject.Error(), Err: err}
	}
	v := reflect.New(structType).Elem()
	for _, f := range fieldsOf(structType) {
		dst := v.FieldByIndex(f.index)
		switch f.capability {
		case capClient:
			if inj.Client != nil {
				dst.Set(reflect.ValueOf(inj.Client))
			}
			continue
		case capAgent:
			if inj.Agent != nil {
				dst.Set(reflect.ValueOf(inj.Agent))
			}
			continue
		}
		raw, ok := fields[f.name]
		if !ok || isNull(raw) {
			switch {
			case f.hasDefault:
				raw = defaultJSON(f.typ, f.defaultTag)
			case f.optional:
				continue
			default:
				missing := &MissingRequiredParameterError{Name: f.name}
				return reflect.Value{}, &ClientError{Reason: missing.Error(), Err: missing}
			}
		}
		val, err := convert(f.typ, raw)
		if err != nil {
			return reflect.Value{}, asClientError(f.typ, err)
		}
		dst.Set(val)
	}
	return addressTo(v, argsType), nil
}

// addressTo re-wraps struct value v into as many pointers as target declares.
func addressTo(v reflect.Value, target reflect.Type) reflect.Value {
	if target.Kind() != reflect.Pointer {
		return v
	}
	inner := addressTo(v, target.Elem())
	p := reflect.New(target.Elem())
	p.Elem().Set(inner)
	return p
}

func asClientError(t reflect.Type, err error) error {
	var ce *ConversionError
	if !errors.As(err, &ce) {
		ce = &ConversionError{Type: t.String(), Err: err}
	}
	return &ClientError{Reason: ce.Error(), Err: ce}
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || isNull(raw) {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// convert decodes raw into a value of type t. Failures are reported as
// *ConversionError naming the innermost offending type.
func convert(t reflect.Type, raw json.RawMessage) (reflect.Value, error) {
	if isNull(raw) {
		return reflect.Zero(t), nil
	}
	if t.Kind() == reflect.Pointer {
		inner, err := convert(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if _, ok := registeredType(t); ok {
		return decodeInto(t, raw)
	}
	if values, ok := enumValues(t); ok {
		return convertEnum(t, values, raw)
	}
	if _, ok := implementsDescriber(t); ok {
		return decodeInto(t, raw)
	}
	if reflect.PointerTo(t).Implements(jsonUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return decodeInto(t, raw)
	}

	switch t.Kind() {
	case reflect.Struct:
		return convertStruct(t, raw)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return decodeInto(t, raw)
		}
		items, err := decodeArray(t, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			v, err := convert(t.Elem(), item)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(v)
		}
		return out, nil
	case reflect.Array:
		items, err := decodeArray(t, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(items) > t.Len() {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: fmt.Errorf("got %d items, capacity is %d", len(items), t.Len())}
		}
		out := reflect.New(t).Elem()
		for i, item := range items {
			v, err := convert(t.Elem(), item)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(v)
		}
		return out, nil
	case reflect.Map:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		out := reflect.MakeMapWithSize(t, len(m))
		for k, item := range m {
			v, err := convert(t.Elem(), item)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
		}
		return out, nil
	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := parseNumber(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(i) {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: fmt.Errorf("value %d overflows %s", i, t)}
		}
		out.SetInt(i)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := parseNumber(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(u) {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: fmt.Errorf("value %d overflows %s", u, t)}
		}
		out.SetUint(u)
		return out, nil
	case reflect.Float32, reflect.Float64:
		n, err := parseNumber(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		out := reflect.New(t).Elem()
		if out.OverflowFloat(f) || math.IsInf(f, 0) {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: fmt.Errorf("value %v overflows %s", f, t)}
		}
		out.SetFloat(f)
		return out, nil
	case reflect.String:
		s, err := parseString(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Interface:
		return decodeInto(t, raw)
	default:
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: ErrUnsupportedType}
	}
}

// convertStruct binds nested properties by name. JSON fields without a matching
// property are ignored; unmatched properties keep their default or zero value.
func convertStruct(t reflect.Type, raw json.RawMessage) (reflect.Value, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
	}
	out := reflect.New(t).Elem()
	for _, f := range fieldsOf(t) {
		if f.capability != capNone {
			continue
		}
		item, ok := m[f.name]
		if !ok || isNull(item) {
			if !f.hasDefault {
				continue
			}
			item = defaultJSON(f.typ, f.defaultTag)
		}
		v, err := convert(f.typ, item)
		if err != nil {
			return reflect.Value{}, err
		}
		out.FieldByIndex(f.index).Set(v)
	}
	return out, nil
}

// convertEnum matches a member name exactly. String-kind enums take the name,
// integer-kind enums take the member index.
func convertEnum(t reflect.Type, values []string, raw json.RawMessage) (reflect.Value, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
	}
	idx := slices.Index(values, name)
	if idx < 0 {
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: fmt.Errorf("%q is not one of %v", name, values)}
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(name)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(idx))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out.SetUint(uint64(idx))
	default:
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: ErrUnsupportedType}
	}
	return out, nil
}

func decodeArray(t reflect.Type, raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ConversionError{Type: t.String(), Err: err}
	}
	return items, nil
}

func decodeInto(t reflect.Type, raw json.RawMessage) (reflect.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	p := reflect.New(t)
	if err := dec.Decode(p.Interface()); err != nil {
		return reflect.Value{}, &ConversionError{Type: t.String(), Err: err}
	}
	return p.Elem(), nil
}

// parseNumber accepts a JSON number or a string holding one.
func parseNumber(raw json.RawMessage) (json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case json.Number:
		return x, nil
	case string:
		if _, err := strconv.ParseFloat(x, 64); err != nil {
			return "", fmt.Errorf("%q is not a number", x)
		}
		return json.Number(x), nil
	default:
		return "", fmt.Errorf("expected number, got %s", raw)
	}
}

// parseBool accepts a JSON boolean or a string holding one.
func parseBool(raw json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("expected boolean, got %s", raw)
	}
}

// parseString accepts a JSON string; numbers and booleans keep their literal text.
func parseString(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("expected string, got %s", raw)
	}
}
