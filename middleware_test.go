package strand_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand"
	"github.com/strandkit/strand/apitest"
)

func TestRecovery_rawHandlerPanic(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.Recovery())
	strand.Raw(r, http.MethodGet, "/boom", func(_ http.ResponseWriter, _ *http.Request) {
		panic("raw handler panic")
	}, strand.OperationInfo{})

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/boom", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequestID_generated(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.RequestID())
	strand.Get(r, "/test", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/test")
	assert.NotEmpty(t, resp.Headers.Get("X-Request-ID"))
}

func TestRequestID_propagated(t *testing.T) {
	t.Parallel()

	var seen string
	r := strand.New()
	r.Use(strand.RequestID())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			seen = strand.GetRequestID(req)
			next.ServeHTTP(w, req)
		})
	})
	strand.Get(r, "/test", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/test", apitest.WithHeader("X-Request-ID", "req-123"))
	assert.Equal(t, "req-123", resp.Headers.Get("X-Request-ID"))
	assert.Equal(t, "req-123", seen)
}

func TestRequestID_customHeader(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.RequestID(strand.RequestIDConfig{
		Header:    "X-Trace-ID",
		Generator: func() string { return "fixed" },
	}))
	strand.Get(r, "/test", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/test")
	assert.Equal(t, "fixed", resp.Headers.Get("X-Trace-ID"))
}

func TestLogger_recordsRequests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := strand.New()
	r.Use(strand.RequestID(strand.RequestIDConfig{Generator: func() string { return "log-test" }}))
	r.Use(strand.Logger(logger))
	strand.Get(r, "/logged", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)
	apitest.Get[msgResp](t, c, "/logged")

	out := buf.String()
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "path=/logged")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "request_id=log-test")
}

func TestRateLimit_blocksOverBurst(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.RateLimit(strand.RateLimitConfig{Rate: 0.1, Burst: 2}))
	strand.Get(r, "/limited", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	assert.Equal(t, http.StatusOK, apitest.Get[msgResp](t, c, "/limited").Status)
	assert.Equal(t, http.StatusOK, apitest.Get[msgResp](t, c, "/limited").Status)

	blocked := apitest.Get[msgResp](t, c, "/limited")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Status)
	assert.NotEmpty(t, blocked.Headers.Get("Retry-After"))
}

func TestRateLimit_perKey(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.RateLimit(strand.RateLimitConfig{
		Rate:    0.1,
		Burst:   1,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-API-Key") },
	}))
	strand.Get(r, "/limited", func(_ context.Context, _ *strand.Void) (*msgResp, error) {
		return &msgResp{Message: "ok"}, nil
	})

	c := apitest.NewClient(t, r)

	assert.Equal(t, http.StatusOK, apitest.Get[msgResp](t, c, "/limited", apitest.WithHeader("X-API-Key", "a")).Status)
	assert.Equal(t, http.StatusTooManyRequests, apitest.Get[msgResp](t, c, "/limited", apitest.WithHeader("X-API-Key", "a")).Status)

	// A different key has its own limiter.
	assert.Equal(t, http.StatusOK, apitest.Get[msgResp](t, c, "/limited", apitest.WithHeader("X-API-Key", "b")).Status)
}

func TestTimeout_boundsContext(t *testing.T) {
	t.Parallel()

	r := strand.New()
	r.Use(strand.Timeout(50 * time.Millisecond))
	strand.Get(r, "/slow", func(ctx context.Context, _ *strand.Void) (*msgResp, error) {
		select {
		case <-ctx.Done():
			return nil, strand.Error(http.StatusGatewayTimeout, "deadline exceeded")
		case <-time.After(5 * time.Second):
			return &msgResp{Message: "too late"}, nil
		}
	})

	c := apitest.NewClient(t, r)

	resp := apitest.GetProblem(t, c, "/slow")
	assert.Equal(t, http.StatusGatewayTimeout, resp.Status)
}

func TestSetGetValue(t *testing.T) {
	t.Parallel()

	type tenant struct {
		ID string
	}

	r := strand.New()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, strand.SetValue(req, tenant{ID: "acme"}))
		})
	})
	strand.Get(r, "/whoami", func(ctx context.Context, _ *strand.Void) (*msgResp, error) {
		tn, ok := strand.GetValue[tenant](ctx)
		if !ok {
			return nil, strand.Error(http.StatusInternalServerError, "no tenant")
		}
		return &msgResp{Message: tn.ID}, nil
	})

	c := apitest.NewClient(t, r)

	resp := apitest.Get[msgResp](t, c, "/whoami")
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "acme", resp.Body.Message)
}
