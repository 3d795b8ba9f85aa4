// Package strand is a typed request-routing and validation framework.
// Endpoints are declared with typed parameters and typed return values;
// the framework handles path matching, parameter extraction, coercion and
// validation, response serialization, and OpenAPI 3.1 schema generation.
//
// The core handler signature removes http.ResponseWriter and *http.Request:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
// Routes are registered with package-level generic functions. Two pattern
// grammars resolve through one matcher: modern slash paths with {name}
// placeholders, and legacy dotted paths of literal segments:
//
//	r := strand.New(strand.WithTitle("Items API"), strand.WithVersion("1.0.0"))
//	strand.Get(r, "/items/{item_id}", getItem)
//	strand.Get(r, "app.api.ping", ping)
//
// Request types declare parameters with struct tags and bodies with a Body
// field:
//
//	type GetItemReq struct {
//	    ItemID int    `path:"item_id"`
//	    Expand string `query:"expand" enum:"none,full" default:"none"`
//	}
//
// Every parameter of a request is validated before the handler runs, and
// every failure is reported in one 422 response. Declared response models
// are enforced with the same engine; a violation is a server defect and
// surfaces as an opaque 500.
//
// The schema document is generated from registered routes and cached:
//
//	r.ServeSchema("/openapi.json")
package strand
