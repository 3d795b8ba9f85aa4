package strand

import (
	"fmt"
	"reflect"
)

// ParamSource identifies where a parameter's raw value comes from.
type ParamSource string

const (
	SourcePath   ParamSource = "path"
	SourceQuery  ParamSource = "query"
	SourceHeader ParamSource = "header"
	SourceBody   ParamSource = "body"
)

// ParamSpec is the declarative description of a single handler input. Specs
// are derived from the request struct once at registration and never mutated
// afterward; the binder and the schema builder both read them.
type ParamSpec struct {
	Name       string
	In         ParamSource
	Type       *TypeInfo
	Required   bool
	Default    string // raw textual default, coerced like any other input
	HasDefault bool
	Doc        string
	Cons       constraints

	fieldIndex int
}

// requestPlan is everything the pipeline needs to bind one request type,
// computed once at registration time.
type requestPlan struct {
	specs        []ParamSpec
	bodyIndex    int // index of the Body field, -1 when absent
	bodyType     *TypeInfo
	bodyRequired bool
	bodyOnly     bool // the whole struct is the body
	rawIndex     int  // index of the RawRequest field, -1 when absent
	isVoid       bool
}

// paramTags are the struct tags used for binding request parameters.
var paramTags = []struct {
	tag string
	in  ParamSource
}{
	{"path", SourcePath},
	{"query", SourceQuery},
	{"header", SourceHeader},
}

// buildRequestPlan derives parameter specs from a request struct type and
// cross-checks them against the route pattern. All introspection happens
// here; per-request binding only walks the precomputed plan.
func buildRequestPlan(t reflect.Type, segs []pathSegment) (*requestPlan, error) {
	plan := &requestPlan{bodyIndex: -1, rawIndex: -1}

	if t == reflect.TypeFor[Void]() {
		plan.isVoid = true
		return plan, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request type %s must be a struct", t)
	}

	names := make(map[ParamSource]map[string]bool)

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		if f.Name == "Body" {
			bt, err := typeInfoFor(f.Type)
			if err != nil {
				return nil, fmt.Errorf("body: %w", err)
			}
			plan.bodyIndex = i
			plan.bodyType = bt
			plan.bodyRequired = f.Tag.Get("required") != "false"
			continue
		}

		if f.Type == reflect.TypeFor[RawRequest]() {
			plan.rawIndex = i
			continue
		}

		for _, pt := range paramTags {
			name := f.Tag.Get(pt.tag)
			if name == "" {
				continue
			}

			spec, err := paramSpecFor(f, i, name, pt.in)
			if err != nil {
				return nil, err
			}

			if names[pt.in] == nil {
				names[pt.in] = make(map[string]bool)
			}
			if names[pt.in][name] {
				return nil, fmt.Errorf("duplicate %s parameter %q", pt.in, name)
			}
			names[pt.in][name] = true

			plan.specs = append(plan.specs, *spec)
		}
	}

	// A struct with no param tags, no Body field, and no RawRequest is
	// decoded entirely from the request body.
	if len(plan.specs) == 0 && plan.bodyIndex < 0 && plan.rawIndex < 0 {
		bt, err := typeInfoFor(t)
		if err != nil {
			return nil, err
		}
		plan.bodyOnly = true
		plan.bodyType = bt
		plan.bodyRequired = true
		return plan, nil
	}

	// Every declared path parameter must appear in the pattern. Pattern
	// parameters a handler does not bind are legal and simply ignored.
	pattern := make(map[string]bool)
	for _, n := range paramNames(segs) {
		pattern[n] = true
	}
	for i := range plan.specs {
		s := &plan.specs[i]
		if s.In == SourcePath && !pattern[s.Name] {
			return nil, fmt.Errorf("path parameter %q is not present in the route pattern", s.Name)
		}
	}

	return plan, nil
}

// paramSpecFor builds one ParamSpec from a tagged struct field.
func paramSpecFor(f reflect.StructField, index int, name string, in ParamSource) (*ParamSpec, error) {
	ti, err := typeInfoFor(f.Type)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	if !scalarKind(ti.Kind) {
		return nil, fmt.Errorf("parameter %q: type %s cannot be coerced from a %s value", name, f.Type, in)
	}

	if enum := f.Tag.Get("enum"); enum != "" {
		if ti.Kind != kindString {
			return nil, fmt.Errorf("parameter %q: enum tag requires a string type", name)
		}
		ti.Enum = splitEnum(enum)
	}

	cons, err := parseConstraints(f.Tag)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}

	spec := &ParamSpec{
		Name:       name,
		In:         in,
		Type:       ti,
		Required:   in == SourcePath || f.Tag.Get("required") == "true",
		Doc:        f.Tag.Get("doc"),
		Cons:       cons,
		fieldIndex: index,
	}

	if def, ok := f.Tag.Lookup("default"); ok {
		if spec.In == SourcePath {
			return nil, fmt.Errorf("parameter %q: path parameters cannot have defaults", name)
		}
		// Fail at startup rather than on the first absent request.
		if _, cerr := coerceScalar(def, ti); cerr != nil {
			return nil, fmt.Errorf("parameter %q: default %q: %s", name, def, cerr.msg)
		}
		spec.Default = def
		spec.HasDefault = true
	}

	return spec, nil
}

// scalarKind reports whether a kind is coercible from a single textual value.
func scalarKind(k typeKind) bool {
	switch k {
	case kindString, kindInt, kindUint, kindFloat, kindBool, kindDuration, kindTime:
		return true
	default:
		return false
	}
}
