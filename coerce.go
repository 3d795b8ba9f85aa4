package strand

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// coerceError is a single coercion failure. The caller knows the field
// location and wraps it into a FieldError.
type coerceError struct {
	kind string
	msg  string
}

// coerceScalar converts raw textual input into the typed value described by
// ti. Numeric parsing is strict: no truncation, no alternate bases, and
// overflow is a type_error. Booleans accept only "true"/"false"
// (case-insensitive).
func coerceScalar(raw string, ti *TypeInfo) (reflect.Value, *coerceError) {
	out := reflect.New(ti.rtype).Elem()

	switch ti.Kind {
	case kindString:
		if len(ti.Enum) > 0 && !enumContains(ti.Enum, raw) {
			return out, &coerceError{
				kind: KindEnum,
				msg:  fmt.Sprintf("value must be one of [%s]", strings.Join(ti.Enum, ", ")),
			}
		}
		out.SetString(raw)

	case kindInt:
		n, err := strconv.ParseInt(raw, 10, ti.rtype.Bits())
		if err != nil {
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid integer %q", raw)}
		}
		out.SetInt(n)

	case kindUint:
		n, err := strconv.ParseUint(raw, 10, ti.rtype.Bits())
		if err != nil {
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid integer %q", raw)}
		}
		out.SetUint(n)

	case kindFloat:
		f, err := strconv.ParseFloat(raw, ti.rtype.Bits())
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid number %q", raw)}
		}
		out.SetFloat(f)

	case kindBool:
		switch strings.ToLower(raw) {
		case "true":
			out.SetBool(true)
		case "false":
			out.SetBool(false)
		default:
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid boolean %q", raw)}
		}

	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid duration %q", raw)}
		}
		out.Set(reflect.ValueOf(d))

	case kindTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return out, &coerceError{kind: KindType, msg: fmt.Sprintf("invalid timestamp %q", raw)}
		}
		out.Set(reflect.ValueOf(t))

	default:
		return out, &coerceError{kind: KindType, msg: "unsupported parameter type"}
	}

	return out, nil
}

// checkScalarConstraints validates a coerced parameter value against its
// declared constraints, appending one constraint_error per violation.
func checkScalarConstraints(v reflect.Value, c constraints, loc []string, errs *[]FieldError) {
	if c.empty() {
		return
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.String:
		checkStringConstraints(v.String(), c, loc, errs)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		checkNumberConstraints(float64(v.Int()), c, loc, errs)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		checkNumberConstraints(float64(v.Uint()), c, loc, errs)
	case reflect.Float32, reflect.Float64:
		checkNumberConstraints(v.Float(), c, loc, errs)
	}
}

func checkStringConstraints(s string, c constraints, loc []string, errs *[]FieldError) {
	if c.minLength != nil && len(s) < *c.minLength {
		*errs = append(*errs, FieldError{
			Loc:     loc,
			Message: fmt.Sprintf("must be at least %d characters", *c.minLength),
			Kind:    KindConstraint,
		})
	}
	if c.maxLength != nil && len(s) > *c.maxLength {
		*errs = append(*errs, FieldError{
			Loc:     loc,
			Message: fmt.Sprintf("must be at most %d characters", *c.maxLength),
			Kind:    KindConstraint,
		})
	}
	if c.pattern != nil && !c.pattern.MatchString(s) {
		*errs = append(*errs, FieldError{
			Loc:     loc,
			Message: fmt.Sprintf("must match pattern %s", c.pattern),
			Kind:    KindConstraint,
		})
	}
}

func checkNumberConstraints(f float64, c constraints, loc []string, errs *[]FieldError) {
	if c.minimum != nil && f < *c.minimum {
		*errs = append(*errs, FieldError{
			Loc:     loc,
			Message: fmt.Sprintf("must be at least %v", *c.minimum),
			Kind:    KindConstraint,
		})
	}
	if c.maximum != nil && f > *c.maximum {
		*errs = append(*errs, FieldError{
			Loc:     loc,
			Message: fmt.Sprintf("must be at most %v", *c.maximum),
			Kind:    KindConstraint,
		})
	}
}

// validateDocument checks a decoded JSON document against a type descriptor,
// collecting every violation rather than stopping at the first. A JSON null
// is treated like an absent value; presence is decided by the enclosing
// object walk.
func validateDocument(doc any, ti *TypeInfo, cons constraints, loc []string, errs *[]FieldError) {
	if doc == nil || ti == nil || ti.Kind == kindAny {
		return
	}

	switch ti.Kind {
	case kindObject:
		m, ok := doc.(map[string]any)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected an object", Kind: KindType})
			return
		}
		for i := range ti.Fields {
			f := &ti.Fields[i]
			val, present := m[f.Name]
			if !present || val == nil {
				if f.Required {
					*errs = append(*errs, FieldError{
						Loc:     append(append([]string{}, loc...), f.Name),
						Message: "field required",
						Kind:    KindMissing,
					})
				}
				continue
			}
			validateDocument(val, f.Type, f.Cons, append(append([]string{}, loc...), f.Name), errs)
		}

	case kindArray:
		a, ok := doc.([]any)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected an array", Kind: KindType})
			return
		}
		if cons.minItems != nil && len(a) < *cons.minItems {
			*errs = append(*errs, FieldError{
				Loc:     loc,
				Message: fmt.Sprintf("must have at least %d items", *cons.minItems),
				Kind:    KindConstraint,
			})
		}
		if cons.maxItems != nil && len(a) > *cons.maxItems {
			*errs = append(*errs, FieldError{
				Loc:     loc,
				Message: fmt.Sprintf("must have at most %d items", *cons.maxItems),
				Kind:    KindConstraint,
			})
		}
		for i, elem := range a {
			validateDocument(elem, ti.Elem, constraints{}, append(append([]string{}, loc...), strconv.Itoa(i)), errs)
		}

	case kindMap:
		m, ok := doc.(map[string]any)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected an object", Kind: KindType})
			return
		}
		for key, val := range m {
			validateDocument(val, ti.Elem, constraints{}, append(append([]string{}, loc...), key), errs)
		}

	case kindString, kindBytes:
		s, ok := doc.(string)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a string", Kind: KindType})
			return
		}
		if len(ti.Enum) > 0 && !enumContains(ti.Enum, s) {
			*errs = append(*errs, FieldError{
				Loc:     loc,
				Message: fmt.Sprintf("value must be one of [%s]", strings.Join(ti.Enum, ", ")),
				Kind:    KindEnum,
			})
			return
		}
		checkStringConstraints(s, cons, loc, errs)

	case kindInt, kindUint:
		f, ok := doc.(float64)
		if !ok || math.Trunc(f) != f {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected an integer", Kind: KindType})
			return
		}
		if ti.Kind == kindUint && f < 0 {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a non-negative integer", Kind: KindType})
			return
		}
		checkNumberConstraints(f, cons, loc, errs)

	case kindFloat:
		f, ok := doc.(float64)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a number", Kind: KindType})
			return
		}
		checkNumberConstraints(f, cons, loc, errs)

	case kindBool:
		if _, ok := doc.(bool); !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a boolean", Kind: KindType})
		}

	case kindDuration:
		// encoding/json represents time.Duration as integer nanoseconds.
		f, ok := doc.(float64)
		if !ok || math.Trunc(f) != f {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a duration in nanoseconds", Kind: KindType})
		}

	case kindTime:
		s, ok := doc.(string)
		if !ok {
			*errs = append(*errs, FieldError{Loc: loc, Message: "expected a timestamp string", Kind: KindType})
			return
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			*errs = append(*errs, FieldError{Loc: loc, Message: fmt.Sprintf("invalid timestamp %q", s), Kind: KindType})
		}
	}
}

func enumContains(members []string, v string) bool {
	for _, m := range members {
		if m == v {
			return true
		}
	}
	return false
}
