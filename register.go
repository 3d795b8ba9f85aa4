package strand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
)

// Registrar is the interface accepted by the registration functions.
// Both *Router and *Group implement it.
type Registrar interface {
	base() *Router
	routePrefix() string
	routeTags() []string
	routeMiddleware() []Middleware
}

// register is the internal generic registration function. It parses the
// pattern, derives parameter specs from the request type, builds the
// pipeline handler, and inserts the route. Every failure here is a
// programming error caught at startup, so register panics rather than
// letting a half-built route linger.
func register[Req, Resp any](reg Registrar, method, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	rt := reg.base()

	segs, err := parseRoute(reg.routePrefix(), pattern)
	if err != nil {
		panic(fmt.Errorf("register %s %s: %w", method, pattern, err))
	}

	reqType := reflect.TypeFor[Req]()
	plan, err := buildRequestPlan(reqType, segs)
	if err != nil {
		panic(fmt.Errorf("register %s %s: %w", method, pattern, err))
	}

	respType := reflect.TypeFor[Resp]()
	var respModel *TypeInfo
	if respType != reflect.TypeFor[Void]() {
		respModel, err = typeInfoFor(respType)
		if err != nil {
			panic(fmt.Errorf("register %s %s: response model: %w", method, pattern, err))
		}
	}

	ri := &routeInfo{
		method:     method,
		pattern:    canonicalPattern(segs),
		segments:   segs,
		paramCount: countParams(segs),
		tags:       reg.routeTags(),
		plan:       plan,
		respModel:  respModel,
		// The response contract is enforced with the same engine as request
		// validation, skipped only when the model carries no contract the
		// Go type system does not already guarantee.
		enforceResp: respModel != nil && hasValidation(respModel),
		reqType:     reqType,
		respType:    respType,
	}

	for _, opt := range opts {
		opt(ri)
	}

	if ri.status == 0 {
		ri.status = defaultStatus(method, respType)
	}

	ri.handler = buildHandler(h, ri, rt)

	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	rt.addRoute(ri)
}

// parseRoute joins an optional group prefix with a pattern and parses the
// result into segments. The prefix and the pattern may each use either
// grammar; the segment lists simply concatenate. Parameter names must be
// unique over the joined route, not just within each half, or the later
// capture would silently overwrite the earlier one.
func parseRoute(prefix, pattern string) ([]pathSegment, error) {
	segs, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return segs, nil
	}
	head, err := parsePattern(prefix)
	if err != nil {
		return nil, fmt.Errorf("group prefix: %w", err)
	}

	joined := append(head, segs...)
	seen := make(map[string]bool)
	for _, s := range joined {
		if s.kind != segParam {
			continue
		}
		if seen[s.text] {
			return nil, fmt.Errorf("parameter %q appears in both the group prefix %q and the pattern", s.text, prefix)
		}
		seen[s.text] = true
	}
	return joined, nil
}

// defaultStatus picks the conventional status per method: 204 for Void
// responses, 201 for POST, 200 otherwise.
func defaultStatus(method string, respType reflect.Type) int {
	if respType == reflect.TypeFor[Void]() {
		return http.StatusNoContent
	}
	if method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}

// buildHandler wraps a typed Handler into the request pipeline: bind and
// validate every declared parameter (exhaustively), invoke the handler with
// panics converted to an explicit error result, then serialize.
func buildHandler[Req, Resp any](h Handler[Req, Resp], ri *routeInfo, rt *Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, errs := bindRequest[Req](r, ri.plan, rt.codecs)
		if len(errs) > 0 {
			rt.writeError(w, r, validationProblem(errs))
			return
		}

		resp, err := invoke(r.Context(), h, req)
		if err != nil {
			rt.respondError(w, r, err)
			return
		}

		if ri.respType == reflect.TypeFor[Void]() {
			w.WriteHeader(ri.status)
			return
		}

		// A declared response model promises a body. A nil result with a nil
		// error is a server defect, handled like any other contract violation.
		if resp == nil {
			rt.logResponseViolation(r, []FieldError{{
				Loc:     []string{"response"},
				Message: "handler returned no response",
				Kind:    KindMissing,
			}})
			rt.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
			return
		}

		if ri.enforceResp {
			if ferrs := validateResponse(resp, ri.respModel); len(ferrs) > 0 {
				rt.logResponseViolation(r, ferrs)
				rt.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
				return
			}
		}

		encodeResponse(w, r, resp, ri.status, rt.codecs)
	})
}

// invoke calls the handler, converting a panic into an error result so
// failure propagation stays visible in the pipeline instead of unwinding
// through it.
func invoke[Req, Resp any](ctx context.Context, h Handler[Req, Resp], req *Req) (resp *Resp, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = &handlerPanic{value: rec, stack: debug.Stack()}
		}
	}()
	return h(ctx, req)
}

// respondError converts a handler error into a response. Errors carrying a
// status (HTTPError, ProblemDetail) are intentional client-facing results
// and pass through. Anything else is a server defect: full detail goes to
// the log, the client sees an opaque 500.
func (r *Router) respondError(w http.ResponseWriter, req *http.Request, err error) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		r.writeError(w, req, err)
		return
	}

	var hp *handlerPanic
	if errors.As(err, &hp) {
		r.logger.LogAttrs(req.Context(), slog.LevelError, "handler panic",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Any("panic", hp.value),
			slog.String("stack", string(hp.stack)),
		)
	} else {
		r.logger.LogAttrs(req.Context(), slog.LevelError, "handler error",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	r.writeError(w, req, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
}

// logResponseViolation records a response contract violation. This is a
// server-side defect, distinct from client input errors, and its detail is
// never sent to the client.
func (r *Router) logResponseViolation(req *http.Request, errs []FieldError) {
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("violations", len(errs)),
	}
	for _, fe := range errs {
		attrs = append(attrs, slog.String("field", fmt.Sprintf("%v: %s", fe.Loc, fe.Message)))
	}
	r.logger.LogAttrs(req.Context(), slog.LevelError, "response model violation", attrs...)
}

// Get registers a GET handler.
func Get[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler.
func Patch[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodDelete, pattern, h, opts...)
}

// Head registers a HEAD handler.
func Head[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodHead, pattern, h, opts...)
}

// Options registers an OPTIONS handler.
func Options[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodOptions, pattern, h, opts...)
}

// Raw registers a raw http.Handler with manual OperationInfo for the schema
// document.
func Raw(reg Registrar, method, pattern string, h RawHandler, info OperationInfo) {
	registerRaw(reg, method, pattern, h, info, false)
}

func registerRaw(reg Registrar, method, pattern string, h RawHandler, info OperationInfo, hidden bool) {
	rt := reg.base()

	segs, err := parseRoute(reg.routePrefix(), pattern)
	if err != nil {
		panic(fmt.Errorf("register %s %s: %w", method, pattern, err))
	}

	ri := &routeInfo{
		method:     method,
		pattern:    canonicalPattern(segs),
		segments:   segs,
		paramCount: countParams(segs),
		summary:    info.Summary,
		desc:       info.Description,
		tags:       append(reg.routeTags(), info.Tags...),
		status:     info.Status,
		hidden:     hidden,
		handler:    http.HandlerFunc(h),
	}

	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	rt.addRoute(ri)
}
