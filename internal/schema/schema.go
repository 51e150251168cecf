// Package schema validates tool descriptors and invocation parameters.
//
// Tool validation enforces the descriptor shape: a non-empty name and
// description, a known category, and input/output schemas that declare type
// "object" and only require declared properties.
//
// Parameter validation is strict. Declared primitive types are checked
// without coercion (a numeric string is not a number), then the complete input
// schema is applied with a JSON Schema validator so that keywords such as
// enum, minimum or nested required lists are honoured as well.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"toolbelt/internal/api"
)

// ValidateTool checks a tool descriptor before it is stored.
func ValidateTool(tool api.Tool) error {
	var errs api.ValidationErrors

	if err := api.ValidateEntityName(tool.Name, "tool"); err != nil {
		errs = append(errs, err.(api.ValidationError))
	}
	if err := api.ValidateRequired("description", tool.Description, "tool"); err != nil {
		errs = append(errs, err.(api.ValidationError))
	}
	if tool.Category != "" && !tool.Category.IsValid() {
		if _, err := api.ParseCategory(string(tool.Category)); err != nil {
			errs = append(errs, err.(api.ValidationError))
		}
	}

	errs = append(errs, ValidateShape("input_schema", tool.InputSchema)...)
	if !tool.OutputSchema.IsZero() {
		errs = append(errs, ValidateShape("output_schema", tool.OutputSchema)...)
	}

	if !errs.HasErrors() {
		if _, err := compile(tool.InputSchema); err != nil {
			errs.Add("input_schema", fmt.Sprintf("is not a valid JSON schema: %v", err))
		}
	}

	return api.FormatValidationError("tool", tool.Name, errs.Err())
}

// ValidateShape performs the basic shape checks on a schema: it must declare
// type "object" and every required name must be a declared property.
func ValidateShape(field string, s api.Schema) api.ValidationErrors {
	var errs api.ValidationErrors

	if s.Type != "object" {
		errs.Add(field+".type", `must be "object"`, s.Type)
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			errs.Add(field+".required", fmt.Sprintf("names undeclared property %q", name), name)
		}
	}
	return errs
}

// ValidateParameters checks params against the input schema s.
func ValidateParameters(s api.Schema, params map[string]interface{}) error {
	var errs api.ValidationErrors

	for _, name := range s.Required {
		if _, ok := params[name]; !ok {
			errs.Add(name, "is required")
		}
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		declared := s.PropertyType(name)
		if declared == "" {
			continue
		}
		if !MatchesType(declared, params[name]) {
			errs.Add(name, fmt.Sprintf("must be of type %s, got %s", declared, describe(params[name])), params[name])
		}
	}
	if errs.HasErrors() {
		return errs
	}

	compiled, err := compile(s)
	if err != nil {
		return api.ValidationError{Field: "input_schema", Message: fmt.Sprintf("cannot compile schema: %v", err)}
	}

	normalized, err := normalize(params)
	if err != nil {
		return api.ValidationError{Message: fmt.Sprintf("parameters are not JSON encodable: %v", err)}
	}
	if err := compiled.Validate(normalized); err != nil {
		return api.ValidationError{Message: err.Error()}
	}
	return nil
}

// MatchesType reports whether v satisfies the JSON Schema primitive type t.
// Unknown type names match anything.
func MatchesType(t string, v interface{}) bool {
	switch t {
	case "null":
		return v == nil
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		_, ok := toFloat(v)
		return ok
	case "integer":
		f, ok := toFloat(v)
		return ok && f == math.Trunc(f)
	case "object":
		if v == nil {
			return false
		}
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
	case "array":
		if v == nil {
			return false
		}
		k := reflect.ValueOf(v).Kind()
		return k == reflect.Slice || k == reflect.Array
	default:
		return true
	}
}

func toFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func describe(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch {
	case MatchesType("string", v):
		return "string"
	case MatchesType("boolean", v):
		return "boolean"
	case MatchesType("number", v):
		return "number"
	case MatchesType("object", v):
		return "object"
	case MatchesType("array", v):
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// normalize round-trips params through JSON so the validator sees the same
// value shapes it would see on the wire.
func normalize(params map[string]interface{}) (interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

var schemaCache sync.Map

func compile(s api.Schema) (*jsonschema.Schema, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	key := string(payload)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.input.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
