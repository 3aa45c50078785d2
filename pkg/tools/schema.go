package tools

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// ValidateParams checks params against schema: required parameters must be
// present, declared parameters must carry the declared JSON type, and enum
// values must be members. Undeclared parameters are ignored.
func ValidateParams(schema *InputSchema, params map[string]any) Validation {
	var errs []string

	for _, name := range schema.Required {
		if _, ok := params[name]; !ok {
			errs = append(errs, fmt.Sprintf("Missing required parameter: %s", name))
		}
	}

	// Sorted so error order is stable across runs.
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, declared := schema.Properties[name]
		if !declared {
			continue
		}
		errs = append(errs, checkValue(name, &prop, params[name])...)
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

func checkValue(path string, prop *Property, value any) []string {
	if value == nil || prop.Type == "" {
		return nil
	}
	if !matchesType(prop.Type, value) {
		return []string{fmt.Sprintf("Parameter %s must be of type %s", path, prop.Type)}
	}

	var errs []string
	if len(prop.Enum) > 0 {
		if s, ok := value.(string); ok && !slices.Contains(prop.Enum, s) {
			errs = append(errs, fmt.Sprintf("Parameter %s must be one of %v", path, prop.Enum))
		}
	}

	switch v := value.(type) {
	case []any:
		if prop.Items != nil {
			for i, item := range v {
				errs = append(errs, checkValue(fmt.Sprintf("%s[%d]", path, i), prop.Items, item)...)
			}
		}
	case []string:
		if prop.Items != nil {
			for i, item := range v {
				errs = append(errs, checkValue(fmt.Sprintf("%s[%d]", path, i), prop.Items, item)...)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if child, ok := prop.Properties[k]; ok && child != nil {
				errs = append(errs, checkValue(path+"."+k, child, v[k])...)
			}
		}
	}
	return errs
}

// matchesType reports whether value is acceptable for a JSON schema type.
// Numbers may arrive as float64 (JSON decoding) or Go integer types.
func matchesType(typ string, value any) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "integer":
		switch n := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		case float32:
			return float64(n) == math.Trunc(float64(n))
		}
		return false
	case "array":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// JSONSchema renders the property as a plain JSON-schema map for provider SDKs.
func (p *Property) JSONSchema() map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Items != nil {
		out["items"] = p.Items.JSONSchema()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			if child != nil {
				props[name] = child.JSONSchema()
			}
		}
		out["properties"] = props
	}
	return out
}

// PropertiesJSON renders the declared parameters as JSON-schema maps.
func (s *InputSchema) PropertiesJSON() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name := range s.Properties {
		prop := s.Properties[name]
		props[name] = prop.JSONSchema()
	}
	return props
}

// JSONSchema renders the whole input schema as a JSON-schema object.
func (s *InputSchema) JSONSchema() map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": s.PropertiesJSON(),
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
