package strand

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ServeSchema registers a GET route at the given pattern that serves the
// schema document as JSON. The route resolves through the same table as
// every other route and is hidden from the document it serves.
func (r *Router) ServeSchema(pattern string) {
	r.serveSchemaRoute(pattern, "application/json", func(w io.Writer) error {
		return json.NewEncoder(w).Encode(r.Schema())
	})
}

// ServeSchemaYAML registers a GET route at the given pattern that serves
// the schema document as YAML.
func (r *Router) ServeSchemaYAML(pattern string) {
	r.serveSchemaRoute(pattern, "application/yaml", func(w io.Writer) error {
		return yaml.NewEncoder(w).Encode(r.Schema())
	})
}

func (r *Router) serveSchemaRoute(pattern, contentType string, write func(io.Writer) error) {
	// The schema endpoint describes the API; it is not part of it, so it
	// stays out of the document it serves.
	registerRaw(r, http.MethodGet, pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		write(w)
	}, OperationInfo{Summary: "Schema document"}, true)
}

// WriteSchema writes the schema document as indented JSON to w.
func (r *Router) WriteSchema(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Schema())
}

// WriteSchemaYAML writes the schema document as YAML to w.
func (r *Router) WriteSchemaYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(r.Schema())
}
