package strand

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// bindRequest creates a new Req value and populates it from the request
// using the precomputed plan. Validation is exhaustive: every declared
// parameter is evaluated and every failure collected, so one response
// reports every bad field.
func bindRequest[Req any](r *http.Request, plan *requestPlan, codecs *codecRegistry) (*Req, []FieldError) {
	req := new(Req)
	if plan.isVoid {
		return req, nil
	}

	rv := reflect.ValueOf(req).Elem()
	var errs []FieldError

	values, _ := r.Context().Value(pathValuesKey{}).(map[string]string)
	query := r.URL.Query()

	for i := range plan.specs {
		spec := &plan.specs[i]
		loc := []string{string(spec.In), spec.Name}

		raw, present := lookupRaw(spec, values, query, r.Header)
		if !present {
			switch {
			case spec.HasDefault:
				raw = spec.Default
			case spec.Required:
				errs = append(errs, FieldError{Loc: loc, Message: "field required", Kind: KindMissing})
				continue
			default:
				continue
			}
		}

		// Present-but-empty is not absent: an empty string still goes
		// through coercion and constraints.
		v, cerr := coerceScalar(raw, spec.Type)
		if cerr != nil {
			errs = append(errs, FieldError{Loc: loc, Message: cerr.msg, Kind: cerr.kind})
			continue
		}

		before := len(errs)
		checkScalarConstraints(v, spec.Cons, loc, &errs)
		if len(errs) > before {
			continue
		}

		setField(rv.Field(spec.fieldIndex), v)
	}

	if plan.bodyType != nil {
		bindBody(r, plan, rv, codecs, &errs)
	}

	if plan.rawIndex >= 0 {
		rv.Field(plan.rawIndex).Set(reflect.ValueOf(RawRequest{Request: r}))
	}

	return req, errs
}

// lookupRaw fetches the raw textual value for a spec, reporting presence
// separately from the value so empty and absent stay distinct.
func lookupRaw(spec *ParamSpec, values map[string]string, query url.Values, header http.Header) (string, bool) {
	switch spec.In {
	case SourcePath:
		v, ok := values[spec.Name]
		return v, ok
	case SourceQuery:
		if !query.Has(spec.Name) {
			return "", false
		}
		return query.Get(spec.Name), true
	case SourceHeader:
		vs := header.Values(spec.Name)
		if len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	default:
		return "", false
	}
}

// setField assigns a coerced value, allocating for pointer (optional) fields.
func setField(field reflect.Value, v reflect.Value) {
	if field.Kind() == reflect.Pointer {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		field.Set(p)
		return
	}
	field.Set(v)
}

// bindBody reads and validates the request body. JSON bodies are validated
// recursively against the body's type descriptor before decoding, so every
// missing or mistyped field is reported. Other registered content types
// decode directly through the codec registry.
func bindBody(r *http.Request, plan *requestPlan, rv reflect.Value, codecs *codecRegistry, errs *[]FieldError) {
	loc := []string{"body"}

	target := rv.Addr().Interface()
	if !plan.bodyOnly {
		target = rv.Field(plan.bodyIndex).Addr().Interface()
	}

	var data []byte
	if r.Body != nil {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			*errs = append(*errs, FieldError{Loc: loc, Message: "unable to read request body", Kind: KindType})
			return
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		if plan.bodyRequired {
			*errs = append(*errs, FieldError{Loc: loc, Message: "request body required", Kind: KindMissing})
		}
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !isJSONContent(contentType) {
		decodeForeignBody(contentType, data, target, codecs, loc, errs)
		return
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		*errs = append(*errs, FieldError{Loc: loc, Message: "invalid JSON", Kind: KindType})
		return
	}
	if doc == nil {
		if plan.bodyRequired {
			*errs = append(*errs, FieldError{Loc: loc, Message: "request body required", Kind: KindMissing})
		}
		return
	}

	before := len(*errs)
	validateDocument(doc, plan.bodyType, constraints{}, loc, errs)
	if len(*errs) > before {
		return
	}

	if err := json.Unmarshal(data, target); err != nil {
		*errs = append(*errs, FieldError{Loc: loc, Message: "body does not match the expected shape", Kind: KindType})
	}
}

// decodeForeignBody decodes a non-JSON body via the codec registry. The
// recursive document validation is defined over JSON; other formats get
// decode errors only.
func decodeForeignBody(contentType string, data []byte, target any, codecs *codecRegistry, loc []string, errs *[]FieldError) {
	dec, ok := codecs.decoderFor(contentType)
	if !ok {
		*errs = append(*errs, FieldError{Loc: loc, Message: "unsupported content type " + contentType, Kind: KindType})
		return
	}
	if err := dec.Decode(bytes.NewReader(data), target); err != nil {
		*errs = append(*errs, FieldError{Loc: loc, Message: "body does not match the expected shape", Kind: KindType})
	}
}

// isJSONContent reports whether a Content-Type names JSON (or is absent,
// the default).
func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mediaType) == "application/json"
}
