package strand_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand"
)

func fetchDocs(t *testing.T, r *strand.Router, path string) string {
	t.Helper()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServeDocs_defaults(t *testing.T) {
	t.Parallel()

	r := strand.New(strand.WithTitle("Docs API"))
	r.ServeSchema("/openapi.json")
	r.ServeDocs("/docs")

	body := fetchDocs(t, r, "/docs")
	assert.Contains(t, body, "<elements-api")
	assert.Contains(t, body, `apiDescriptionUrl="/openapi.json"`)
	assert.Contains(t, body, "<title>Docs API</title>")
}

func TestServeDocs_options(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.ServeSchemaYAML("/schema.yaml")
	r.ServeDocs("/docs",
		strand.WithDocsTitle("Custom Docs"),
		strand.WithDocsSchemaURL("/schema.yaml"),
	)

	body := fetchDocs(t, r, "/docs")
	assert.Contains(t, body, "<title>Custom Docs</title>")
	assert.Contains(t, body, `apiDescriptionUrl="/schema.yaml"`)
}

func TestServeDocs_hiddenFromSchema(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.ServeSchema("/openapi.json")
	r.ServeDocs("/docs")

	doc := r.Schema()
	_, ok := doc.Paths["/docs"]
	assert.False(t, ok)
}
