package strand

import (
	"encoding/json"
	"errors"
	"net/http"
)

// CookieSetter is optionally implemented by response types to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// encodeResponse writes a handler result to the wire: cookies and headers
// first, then the negotiated encoding. A response implementing StatusCoder
// overrides the route's default status.
func encodeResponse(w http.ResponseWriter, r *http.Request, resp any, defaultStatus int, codecs *codecRegistry) {
	if cs, ok := resp.(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			http.SetCookie(w, c)
		}
	}
	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}

	status := defaultStatus
	if sc, ok := resp.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	enc := codecs.negotiate(r.Header.Get("Accept"))

	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	enc.Encode(w, resp)
}

// validateResponse checks a handler's return value against the declared
// response model using the same engine as request validation. A non-empty
// result is a server-side contract violation, not a client error.
func validateResponse(v any, model *TypeInfo) []FieldError {
	data, err := json.Marshal(v)
	if err != nil {
		return []FieldError{{Loc: []string{"response"}, Message: "response is not serializable", Kind: KindType}}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []FieldError{{Loc: []string{"response"}, Message: "response is not serializable", Kind: KindType}}
	}

	var errs []FieldError
	if doc == nil {
		errs = append(errs, FieldError{Loc: []string{"response"}, Message: "response required", Kind: KindMissing})
		return errs
	}
	validateDocument(doc, model, constraints{}, []string{"response"}, &errs)
	return errs
}

// writeErrorResponse writes an error as an RFC 9457 problem details response.
func writeErrorResponse(w http.ResponseWriter, err error) {
	status := ErrorStatus(err)

	// If the error is already a ProblemDetail, use it directly.
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		writeProblem(w, pd)
		return
	}

	writeProblem(w, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	})
}

func writeProblem(w http.ResponseWriter, pd *ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(pd)
}
