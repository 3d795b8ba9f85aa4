package strand

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// typeKind enumerates the shapes the validation engine understands.
type typeKind int

const (
	kindAny typeKind = iota
	kindString
	kindInt
	kindUint
	kindFloat
	kindBool
	kindDuration
	kindTime
	kindBytes
	kindObject
	kindArray
	kindMap
)

// TypeInfo is a static description of a request or response type, derived
// from reflection exactly once at registration. The validation engine and
// the schema builder both consume it; requests are never re-introspected.
type TypeInfo struct {
	Kind   typeKind
	Enum   []string    // allowed values for string enums
	Elem   *TypeInfo   // array element or map value type
	Fields []FieldInfo // object fields in declaration order

	rtype reflect.Type
}

// FieldInfo describes one field of an object TypeInfo.
type FieldInfo struct {
	Name     string // wire name (json tag, falling back to the Go name)
	Doc      string
	Type     *TypeInfo
	Required bool
	Cons     constraints
}

// constraints are declarative bounds parsed from struct tags. Violations
// are reported as constraint_error field errors.
type constraints struct {
	minimum   *float64
	maximum   *float64
	minLength *int
	maxLength *int
	minItems  *int
	maxItems  *int
	pattern   *regexp.Regexp
}

func (c constraints) empty() bool {
	return c.minimum == nil && c.maximum == nil &&
		c.minLength == nil && c.maxLength == nil &&
		c.minItems == nil && c.maxItems == nil &&
		c.pattern == nil
}

// parseConstraints reads constraint tags from a struct field. Malformed
// constraint values are a programming error and fail registration.
func parseConstraints(tag reflect.StructTag) (constraints, error) {
	var c constraints

	readFloat := func(name string, dst **float64) error {
		v := tag.Get(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s tag %q", name, v)
		}
		*dst = &f
		return nil
	}
	readInt := func(name string, dst **int) error {
		v := tag.Get(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s tag %q", name, v)
		}
		*dst = &n
		return nil
	}

	if err := readFloat("minimum", &c.minimum); err != nil {
		return c, err
	}
	if err := readFloat("maximum", &c.maximum); err != nil {
		return c, err
	}
	if err := readInt("minLength", &c.minLength); err != nil {
		return c, err
	}
	if err := readInt("maxLength", &c.maxLength); err != nil {
		return c, err
	}
	if err := readInt("minItems", &c.minItems); err != nil {
		return c, err
	}
	if err := readInt("maxItems", &c.maxItems); err != nil {
		return c, err
	}
	if v := tag.Get("pattern"); v != "" {
		re, err := regexp.Compile(v)
		if err != nil {
			return c, fmt.Errorf("invalid pattern tag %q: %w", v, err)
		}
		c.pattern = re
	}

	return c, nil
}

// typeInfoFor derives a TypeInfo from a Go type.
func typeInfoFor(t reflect.Type) (*TypeInfo, error) {
	return typeInfo(t, make(map[reflect.Type]*TypeInfo))
}

func typeInfo(t reflect.Type, seen map[reflect.Type]*TypeInfo) (*TypeInfo, error) {
	if t.Kind() == reflect.Pointer {
		return typeInfo(t.Elem(), seen)
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return &TypeInfo{Kind: kindTime, rtype: t}, nil
	case reflect.TypeFor[time.Duration]():
		return &TypeInfo{Kind: kindDuration, rtype: t}, nil
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return &TypeInfo{Kind: kindString, rtype: t}, nil
	case reflect.Bool:
		return &TypeInfo{Kind: kindBool, rtype: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &TypeInfo{Kind: kindInt, rtype: t}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &TypeInfo{Kind: kindUint, rtype: t}, nil
	case reflect.Float32, reflect.Float64:
		return &TypeInfo{Kind: kindFloat, rtype: t}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &TypeInfo{Kind: kindBytes, rtype: t}, nil
		}
		elem, err := typeInfo(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &TypeInfo{Kind: kindArray, Elem: elem, rtype: t}, nil
	case reflect.Array:
		elem, err := typeInfo(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &TypeInfo{Kind: kindArray, Elem: elem, rtype: t}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &TypeInfo{Kind: kindAny, rtype: t}, nil
		}
		elem, err := typeInfo(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return &TypeInfo{Kind: kindMap, Elem: elem, rtype: t}, nil
	case reflect.Struct:
		if ti, ok := seen[t]; ok {
			// Recursive type: reuse the in-progress descriptor.
			return ti, nil
		}
		return structInfo(t, seen)
	case reflect.Interface:
		return &TypeInfo{Kind: kindAny, rtype: t}, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func structInfo(t reflect.Type, seen map[reflect.Type]*TypeInfo) (*TypeInfo, error) {
	ti := &TypeInfo{Kind: kindObject, rtype: t}
	seen[t] = ti

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		ft, err := typeInfo(f.Type, seen)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}

		if enum := f.Tag.Get("enum"); enum != "" {
			if ft.Kind != kindString {
				return nil, fmt.Errorf("field %s: enum tag requires a string type", f.Name)
			}
			// Copy so the enum applies to this field only.
			enumTI := *ft
			enumTI.Enum = splitEnum(enum)
			ft = &enumTI
		}

		cons, err := parseConstraints(f.Tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}

		ti.Fields = append(ti.Fields, FieldInfo{
			Name:     name,
			Doc:      f.Tag.Get("doc"),
			Type:     ft,
			Required: f.Tag.Get("required") == "true",
			Cons:     cons,
		})
	}

	return ti, nil
}

// splitEnum parses a comma-separated enum tag into its members.
func splitEnum(tag string) []string {
	return strings.Split(tag, ",")
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// hasValidation reports whether a descriptor carries any contract beyond
// what the Go type system already guarantees (required fields, enums,
// constraints). Response enforcement is skipped for trivially-satisfied
// models since encoding alone preserves the shape.
func hasValidation(ti *TypeInfo) bool {
	return hasValidationSeen(ti, make(map[*TypeInfo]bool))
}

func hasValidationSeen(ti *TypeInfo, seen map[*TypeInfo]bool) bool {
	if ti == nil || seen[ti] {
		return false
	}
	seen[ti] = true

	if len(ti.Enum) > 0 {
		return true
	}
	if ti.Elem != nil && hasValidationSeen(ti.Elem, seen) {
		return true
	}
	for i := range ti.Fields {
		f := &ti.Fields[i]
		if f.Required || !f.Cons.empty() || hasValidationSeen(f.Type, seen) {
			return true
		}
	}
	return false
}
