package strand

import (
	"fmt"
	"strings"
)

// segmentKind distinguishes the two pathSegment variants.
type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
)

// pathSegment is one token of a route pattern: either a literal that must
// match an incoming segment exactly, or a named parameter that captures it.
type pathSegment struct {
	kind segmentKind
	text string // literal text, or the parameter name
}

// parsePattern parses a route pattern into segments. Two grammars are
// accepted:
//
//   - modern: slash-separated segments where "{name}" denotes a named
//     parameter, e.g. "/items/{item_id}"
//   - legacy: dot-separated literal segments with no parameters,
//     e.g. "app.api.ping"
//
// A pattern containing a slash is always parsed as modern; everything else
// is parsed as legacy. Both forms resolve through the same matcher.
func parsePattern(pattern string) ([]pathSegment, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty route pattern")
	}

	if strings.Contains(pattern, "/") {
		return parseModernPattern(pattern)
	}
	return parseLegacyPattern(pattern)
}

func parseModernPattern(pattern string) ([]pathSegment, error) {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		// The root pattern "/" has no segments.
		return []pathSegment{}, nil
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]pathSegment, 0, len(parts))
	seen := make(map[string]bool)

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("pattern %q contains an empty segment", pattern)
		}

		if strings.HasPrefix(part, "{") || strings.HasSuffix(part, "}") {
			name, ok := strings.CutPrefix(part, "{")
			if !ok {
				return nil, fmt.Errorf("pattern %q: malformed parameter segment %q", pattern, part)
			}
			name, ok = strings.CutSuffix(name, "}")
			if !ok || name == "" || strings.ContainsAny(name, "{}") {
				return nil, fmt.Errorf("pattern %q: malformed parameter segment %q", pattern, part)
			}
			if seen[name] {
				return nil, fmt.Errorf("pattern %q: duplicate parameter %q", pattern, name)
			}
			seen[name] = true
			segs = append(segs, pathSegment{kind: segParam, text: name})
			continue
		}

		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("pattern %q: malformed segment %q", pattern, part)
		}
		segs = append(segs, pathSegment{kind: segLiteral, text: part})
	}

	return segs, nil
}

func parseLegacyPattern(pattern string) ([]pathSegment, error) {
	parts := strings.Split(pattern, ".")
	segs := make([]pathSegment, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("pattern %q contains an empty segment", pattern)
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("pattern %q: parameters are not allowed in dotted patterns", pattern)
		}
		segs = append(segs, pathSegment{kind: segLiteral, text: part})
	}

	return segs, nil
}

// splitRequestPath normalizes an incoming request path into slash segments.
func splitRequestPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// legacySegments reinterprets a request path as a legacy dotted invocation:
// a single token containing dots, like "/app.api.ping". The dispatcher
// tries the slash interpretation first and falls back to this one, so a
// literal single-segment route like "/openapi.json" keeps priority over a
// dotted reading of the same path.
func legacySegments(path string) ([]string, bool) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") || !strings.Contains(trimmed, ".") {
		return nil, false
	}
	return strings.Split(trimmed, "."), true
}

// canonicalPattern renders segments in the modern slash form. Dotted legacy
// patterns and modern patterns that describe the same endpoint canonicalize
// identically, which keeps registration-time duplicate detection and the
// schema document's paths consistent across both grammars.
func canonicalPattern(segs []pathSegment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.kind == segParam {
			b.WriteByte('{')
			b.WriteString(s.text)
			b.WriteByte('}')
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// shapeKey returns a key that is identical for two patterns exactly when
// they match the same set of paths with the same specificity: literals must
// be equal position-by-position and parameters (regardless of name) occupy
// the same positions.
func shapeKey(segs []pathSegment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.kind == segParam {
			b.WriteByte('*')
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// paramNames returns the parameter names in pattern order.
func paramNames(segs []pathSegment) []string {
	var names []string
	for _, s := range segs {
		if s.kind == segParam {
			names = append(names, s.text)
		}
	}
	return names
}

// countParams returns the number of parameter segments.
func countParams(segs []pathSegment) int {
	n := 0
	for _, s := range segs {
		if s.kind == segParam {
			n++
		}
	}
	return n
}
