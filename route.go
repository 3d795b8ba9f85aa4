package strand

import (
	"net/http"
	"reflect"
)

// routeInfo holds everything registered for one route: the parsed pattern,
// the parameter specs derived from the handler's request type, schema
// metadata, and the built pipeline handler.
type routeInfo struct {
	method   string
	pattern  string // canonical slash form
	segments []pathSegment

	paramCount int
	index      int // registration order, used by the ranking function

	summary     string
	desc        string
	tags        []string
	status      int
	deprecated  bool
	operationID string
	hidden      bool // excluded from the schema document

	plan        *requestPlan
	respModel   *TypeInfo
	enforceResp bool

	reqType  reflect.Type
	respType reflect.Type

	handler http.Handler
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// WithSummary sets the schema summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the schema description for the route.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags adds schema tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the schema document.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithOperationID sets a custom operationId for the schema document.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

// ExcludeFromSchema hides the route from the generated schema document.
// The route still matches and serves requests.
func ExcludeFromSchema() RouteOption {
	return func(ri *routeInfo) {
		ri.hidden = true
	}
}
