package strand

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Router is the central type that holds the route table, middleware, and
// configuration. It implements http.Handler: incoming requests are matched
// against the table and dispatched to the winning route's pipeline.
type Router struct {
	table      *routeTable
	middleware []Middleware

	title   string
	version string
	servers []Server

	errorHandler ErrorHandler
	codecs       *codecRegistry
	logger       *slog.Logger

	userEncoders []Encoder
	userDecoders []Decoder

	// mu guards registration and the schema cache. Matching takes no lock:
	// the table is written only during single-threaded startup.
	mu        sync.Mutex
	schema    *SchemaDocument
	schemaOld bool // registry changed since the cached build
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in the schema document).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in the schema document).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// Server describes one entry of the schema document's servers array.
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WithServers sets the schema document's servers array.
func WithServers(servers ...Server) RouterOption {
	return func(r *Router) {
		r.servers = servers
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.userEncoders = append(r.userEncoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.userDecoders = append(r.userDecoders, dec)
	}
}

// WithLogger sets the logger used for server-side defect logs
// (handler panics, response contract violations).
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		table:   newRouteTable(),
		title:   "Strand API",
		version: "0.1.0",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.codecs = newCodecRegistry(r.userEncoders, r.userDecoders)
	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(r.dispatch))
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// pathValuesKey carries extracted path parameter strings from the matcher
// to the binder.
type pathValuesKey struct{}

// dispatch matches the request against the route table and hands it to the
// winning route. The slash interpretation of the path is tried first; a
// single-token path containing dots is retried as a legacy dotted
// invocation. A path that matches only other methods yields 405 with an
// Allow header; a path that matches nothing yields 404.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	segs := splitRequestPath(req.URL.Path)
	ri, values, allow := r.table.match(req.Method, segs)

	if ri == nil {
		if legacy, ok := legacySegments(req.URL.Path); ok {
			lri, lvalues, lallow := r.table.match(req.Method, legacy)
			if lri != nil {
				ri, values = lri, lvalues
			} else if len(allow) == 0 {
				allow = lallow
			}
		}
	}

	switch {
	case ri != nil:
		ctx := context.WithValue(req.Context(), pathValuesKey{}, values)
		ri.handler.ServeHTTP(w, req.WithContext(ctx))
	case len(allow) > 0:
		w.Header().Set("Allow", strings.Join(allow, ", "))
		r.writeError(w, req, Error(http.StatusMethodNotAllowed, "method not allowed"))
	default:
		r.writeError(w, req, Error(http.StatusNotFound, "not found"))
	}
}

// writeError routes an error response through the custom handler when set.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	if r.errorHandler != nil {
		r.errorHandler(w, req, err)
		return
	}
	writeErrorResponse(w, err)
}

// addRoute inserts a routeInfo into the table. Registration happens during
// startup only; a collision is fatal and panics with *DuplicateRouteError
// before the route becomes reachable.
func (r *Router) addRoute(ri *routeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.table.insert(ri); err != nil {
		panic(err)
	}
	// Any registry mutation invalidates the cached schema document.
	r.schemaOld = true
}

// base implements Registrar.
func (r *Router) base() *Router { return r }

func (r *Router) routePrefix() string           { return "" }
func (r *Router) routeTags() []string           { return nil }
func (r *Router) routeMiddleware() []Middleware { return nil }

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
