package strand

import (
	"strconv"
	"strings"
)

// SchemaDocument is the top-level OpenAPI 3.1 document describing every
// registered route. It is a pure function of the route table snapshot,
// built at most once per registry state and cached.
type SchemaDocument struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    Info                `json:"info" yaml:"info"`
	Servers []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

// Info holds API metadata.
type Info struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// PathItem maps lowercase HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string                 `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string                 `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter            `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody           `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]ResponseObj `json:"responses" yaml:"responses"`
	Deprecated  bool                   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                   `json:"default,omitempty" yaml:"default,omitempty"`

	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinItems  *int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`

	// AdditionalProperties covers map-valued schemas.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// Schema returns the schema document for the current route table. The
// first call builds it; later calls return the cached document until the
// registry changes. The mutex collapses concurrent first builds into one,
// with every caller receiving the same completed document.
func (r *Router) Schema() *SchemaDocument {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schema == nil || r.schemaOld {
		r.schema = buildSchema(r.title, r.version, r.servers, r.table.routes)
		r.schemaOld = false
	}
	return r.schema
}

// buildSchema is a pure function of the route table snapshot.
func buildSchema(title, version string, servers []Server, routes []*routeInfo) *SchemaDocument {
	doc := &SchemaDocument{
		OpenAPI: "3.1.0",
		Info:    Info{Title: title, Version: version},
		Servers: servers,
		Paths:   make(map[string]PathItem),
	}

	for _, ri := range routes {
		if ri.hidden {
			continue
		}
		if doc.Paths[ri.pattern] == nil {
			doc.Paths[ri.pattern] = make(PathItem)
		}
		doc.Paths[ri.pattern][strings.ToLower(ri.method)] = buildOperation(ri)
	}

	return doc
}

// buildOperation creates an Operation from a routeInfo's registration-time
// metadata. No reflection happens here: everything comes from the derived
// parameter specs and type descriptors.
func buildOperation(ri *routeInfo) Operation {
	op := Operation{
		Summary:     ri.summary,
		Description: ri.desc,
		Tags:        ri.tags,
		OperationID: ri.operationID,
		Deprecated:  ri.deprecated,
		Responses:   make(map[string]ResponseObj),
	}

	validated := false

	if ri.plan != nil {
		op.Parameters = buildParameters(ri)
		if ri.plan.bodyType != nil {
			op.RequestBody = &RequestBody{
				Required: ri.plan.bodyRequired,
				Content: map[string]MediaObj{
					"application/json": {Schema: schemaPtr(ri.plan.bodyType, constraints{})},
				},
			}
		}
		validated = len(ri.plan.specs) > 0 || ri.plan.bodyType != nil
	}

	status := ri.status
	if status == 0 {
		status = 200
	}

	if ri.respModel == nil {
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "No content"}
	} else {
		op.Responses[strconv.Itoa(status)] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"application/json": {Schema: schemaPtr(ri.respModel, constraints{})},
			},
		}
	}

	if validated {
		op.Responses["422"] = ResponseObj{
			Description: "Validation failed",
			Content: map[string]MediaObj{
				"application/problem+json": {Schema: validationErrorSchema()},
			},
		}
	}

	return op
}

// buildParameters emits one Parameter per declared spec, plus a plain
// string parameter for any pattern placeholder the handler does not bind.
func buildParameters(ri *routeInfo) []Parameter {
	var params []Parameter
	declared := make(map[string]bool)

	for i := range ri.plan.specs {
		spec := &ri.plan.specs[i]
		if spec.In == SourcePath {
			declared[spec.Name] = true
		}

		schema := schemaForType(spec.Type, spec.Cons)
		if spec.HasDefault {
			if v, cerr := coerceScalar(spec.Default, spec.Type); cerr == nil {
				schema.Default = v.Interface()
			}
		}

		params = append(params, Parameter{
			Name:        spec.Name,
			In:          string(spec.In),
			Description: spec.Doc,
			Required:    spec.Required,
			Schema:      schema,
		})
	}

	for _, name := range paramNames(ri.segments) {
		if declared[name] {
			continue
		}
		params = append(params, Parameter{
			Name:     name,
			In:       string(SourcePath),
			Required: true,
			Schema:   JSONSchema{Type: "string"},
		})
	}

	return params
}

// schemaForType converts a type descriptor to a JSON Schema.
func schemaForType(ti *TypeInfo, cons constraints) JSONSchema {
	return schemaSeen(ti, cons, make(map[*TypeInfo]bool))
}

func schemaPtr(ti *TypeInfo, cons constraints) *JSONSchema {
	s := schemaForType(ti, cons)
	return &s
}

func schemaSeen(ti *TypeInfo, cons constraints, seen map[*TypeInfo]bool) JSONSchema {
	if ti == nil {
		return JSONSchema{}
	}

	var s JSONSchema

	switch ti.Kind {
	case kindString:
		s = JSONSchema{Type: "string", Enum: ti.Enum}
	case kindInt, kindUint:
		s = JSONSchema{Type: "integer"}
	case kindFloat:
		s = JSONSchema{Type: "number"}
	case kindBool:
		s = JSONSchema{Type: "boolean"}
	case kindBytes:
		s = JSONSchema{Type: "string", Format: "byte"}
	case kindDuration:
		s = JSONSchema{Type: "integer", Format: "int64", Description: "duration in nanoseconds"}
	case kindTime:
		s = JSONSchema{Type: "string", Format: "date-time"}
	case kindArray:
		items := schemaSeen(ti.Elem, constraints{}, seen)
		s = JSONSchema{Type: "array", Items: &items}
	case kindMap:
		vals := schemaSeen(ti.Elem, constraints{}, seen)
		s = JSONSchema{Type: "object", AdditionalProperties: &vals}
	case kindObject:
		if seen[ti] {
			// Recursive type: stop at a bare object.
			return JSONSchema{Type: "object"}
		}
		seen[ti] = true
		s = JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}
		for i := range ti.Fields {
			f := &ti.Fields[i]
			prop := schemaSeen(f.Type, f.Cons, seen)
			if f.Doc != "" {
				prop.Description = f.Doc
			}
			s.Properties[f.Name] = prop
			if f.Required {
				s.Required = append(s.Required, f.Name)
			}
		}
	case kindAny:
		s = JSONSchema{}
	}

	applyConstraints(&s, cons)
	return s
}

func applyConstraints(s *JSONSchema, c constraints) {
	s.Minimum = c.minimum
	s.Maximum = c.maximum
	s.MinLength = c.minLength
	s.MaxLength = c.maxLength
	s.MinItems = c.minItems
	s.MaxItems = c.maxItems
	if c.pattern != nil {
		s.Pattern = c.pattern.String()
	}
}

// validationErrorSchema describes the aggregate 422 error body.
func validationErrorSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"type":   {Type: "string"},
			"title":  {Type: "string"},
			"status": {Type: "integer"},
			"detail": {Type: "string"},
			"errors": {
				Type: "array",
				Items: &JSONSchema{
					Type: "object",
					Properties: map[string]JSONSchema{
						"loc":  {Type: "array", Items: &JSONSchema{Type: "string"}},
						"msg":  {Type: "string"},
						"kind": {Type: "string"},
					},
					Required: []string{"loc", "msg", "kind"},
				},
			},
		},
	}
}
