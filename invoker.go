package agentkit

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/stoewer/go-strcase"
)

// invoke runs the entry operation with bound args and renders its result.
// Handler errors are classified with wrapHandlerError.
func invoke(ctx context.Context, e Entry, args reflect.Value) (string, error) {
	res, err := e.call(ctx, args)
	if err != nil {
		return "", wrapHandlerError(err)
	}
	out, err := FormatResult(res)
	if err != nil {
		return "", &SystemError{Err: err}
	}
	return out, nil
}

// FormatResult renders a tool result as the text of a tool-result message.
// nil becomes "null" and everything else is JSON-encoded with object keys in
// snake_case. A string result is passed through verbatim, not JSON-quoted:
// FormatResult("sunny") is `sunny`, not `"sunny"`.
func FormatResult(res any) (string, error) {
	if isNilResult(res) {
		return "null", nil
	}
	switch v := res.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return "", err
	}
	out, err := json.Marshal(snakeKeys(tree))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isNilResult(res any) bool {
	if res == nil {
		return true
	}
	v := reflect.ValueOf(res)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func snakeKeys(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[strcase.SnakeCase(k)] = snakeKeys(item)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = snakeKeys(item)
		}
		return x
	default:
		return v
	}
}
