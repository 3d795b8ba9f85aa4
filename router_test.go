package strand_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand"
	"github.com/strandkit/strand/apitest"
)

type msgResp struct {
	Message string `json:"message"`
}

func TestRouter_ServeHTTP_basic(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/health", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/health")
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "ok", resp.Body.Message)
}

func TestRouter_Use_middleware(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Custom", "applied")
			next.ServeHTTP(w, req)
		})
	})

	strand.Get(r, "/test", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "hello"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/test")
	assert.Equal(t, "applied", resp.Headers.Get("X-Custom"))
}

func TestRouter_notFound(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/items", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.GetProblem(t, c, "/widgets")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/problem+json", resp.Headers.Get("Content-Type"))
	require.NotNil(t, resp.Body)
	assert.Equal(t, http.StatusNotFound, resp.Body.Status)
}

func TestRouter_methodNotAllowed(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/items", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "list"}, nil
	})
	strand.Post(r, "/items", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "create"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, srv.URL+"/items", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
}

func TestRouter_dottedPathDispatch(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "app.api.ping", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "pong"}, nil
	})

	c := apitest.NewClient(t, r)

	// The dotted invocation and the canonical slash path both resolve.
	resp := apitest.Get[msgResp](t, c, "/app.api.ping")
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "pong", resp.Body.Message)

	resp = apitest.Get[msgResp](t, c, "/app/api/ping")
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "pong", resp.Body.Message)
}

func TestRouter_dottedLiteralWinsOverLegacyReading(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/report.csv", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "csv"}, nil
	})
	strand.Get(r, "report.pdf", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "pdf"}, nil
	})

	c := apitest.NewClient(t, r)

	// "/report.csv" matches the single-segment literal directly; the legacy
	// dotted reading is only a fallback.
	resp := apitest.Get[msgResp](t, c, "/report.csv")
	require.NotNil(t, resp.Body)
	assert.Equal(t, "csv", resp.Body.Message)

	// "report.pdf" was registered dotted, so only the fallback finds it.
	resp = apitest.Get[msgResp](t, c, "/report.pdf")
	require.NotNil(t, resp.Body)
	assert.Equal(t, "pdf", resp.Body.Message)
}

func TestRouter_dottedFallback_methodNotAllowed(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Post(r, "app.api.submit", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.GetProblem(t, c, "/app.api.submit")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.Equal(t, "POST", resp.Headers.Get("Allow"))
}

func TestRouter_handlerError(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/fail", func(_ context.Context, _ *strand.Void) (*strand.Void, error) {
		return nil, strand.Error(http.StatusConflict, "already exists")
	})

	c := apitest.NewClient(t, r)

	resp := apitest.GetProblem(t, c, "/fail")
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, "application/problem+json", resp.Headers.Get("Content-Type"))
	require.NotNil(t, resp.Body)
	assert.Equal(t, http.StatusConflict, resp.Body.Status)
	assert.Equal(t, "already exists", resp.Body.Detail)
}

func TestRouter_handlerPanicIsOpaque(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/boom", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		panic("secret database password leaked")
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/boom", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "secret")

	var pd strand.ProblemDetail
	require.NoError(t, json.Unmarshal(body, &pd))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), pd.Detail)
}

func TestRouter_opaqueErrorForPlainFailure(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/fail", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return nil, io.ErrUnexpectedEOF
	})

	c := apitest.NewClient(t, r)

	resp := apitest.GetProblem(t, c, "/fail")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	require.NotNil(t, resp.Body)
	assert.NotContains(t, resp.Body.Detail, "EOF")
}

func TestRouter_customErrorHandler(t *testing.T) {
	t.Parallel()

	r := strand.New(strand.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(strand.ErrorStatus(err))
		//nolint:errcheck // test writer
		w.Write([]byte("custom: " + err.Error()))
	}))
	strand.Get(r, "/fail", func(_ context.Context, _ *strand.Void) (*strand.Void, error) {
		return nil, strand.Error(http.StatusTeapot, "short and stout")
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/fail", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "custom: short and stout", string(body))
}

func TestRouter_duplicateRoutePanics(t *testing.T) {
	t.Parallel()

	r := strand.New()
	strand.Get(r, "/items/{item_id}", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return nil, nil
	})

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		var dup *strand.DuplicateRouteError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, http.MethodGet, dup.Method)
	}()

	// Same shape, different parameter name.
	strand.Get(r, "/items/{id}", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return nil, nil
	})
}
