package strand

import (
	"maps"
	"slices"
)

// routeTable is the ordered registry of routes. It is populated during the
// single-threaded startup phase and read-only afterward, so match runs
// without locking.
type routeTable struct {
	routes  []*routeInfo
	byShape map[string]*routeInfo
}

func newRouteTable() *routeTable {
	return &routeTable{byShape: make(map[string]*routeInfo)}
}

// insert adds a route. Two routes collide when they share a method and a
// shape: literals equal position-by-position with parameters in the same
// positions. This catches both exact duplicates and patterns that would
// match the same paths with equal specificity, which matcher ranking alone
// cannot disambiguate.
func (t *routeTable) insert(ri *routeInfo) error {
	key := ri.method + " " + shapeKey(ri.segments)
	if _, exists := t.byShape[key]; exists {
		return &DuplicateRouteError{Method: ri.method, Pattern: ri.pattern}
	}
	ri.index = len(t.routes)
	t.byShape[key] = ri
	t.routes = append(t.routes, ri)
	return nil
}

// match resolves a method and normalized path segments against the table.
// Exactly one of the return cases holds:
//
//   - a route matched: route and extracted path values are non-nil
//   - the path matched other methods only: allow lists them (405)
//   - nothing matched: all returns are zero (404)
func (t *routeTable) match(method string, segs []string) (*routeInfo, map[string]string, []string) {
	var best *routeInfo
	var allowed map[string]struct{}

	for _, ri := range t.routes {
		if !segmentsMatch(ri.segments, segs) {
			continue
		}
		if ri.method != method {
			if allowed == nil {
				allowed = make(map[string]struct{})
			}
			allowed[ri.method] = struct{}{}
			continue
		}
		if best == nil || moreSpecific(ri, best) {
			best = ri
		}
	}

	if best != nil {
		return best, extractValues(best.segments, segs), nil
	}
	if len(allowed) > 0 {
		return nil, nil, slices.Sorted(maps.Keys(allowed))
	}
	return nil, nil, nil
}

// moreSpecific is the ranking function between two candidates that both
// structurally match a path: fewer parameter segments wins (an exact
// literal match always outranks a parameterized one), and on a tie the
// first-registered route wins. The ordering is deliberate, not an accident
// of registration order alone.
func moreSpecific(a, b *routeInfo) bool {
	if a.paramCount != b.paramCount {
		return a.paramCount < b.paramCount
	}
	return a.index < b.index
}

// segmentsMatch reports whether a pattern accepts the given path segments.
// Literals compare exactly and case-sensitively; a parameter accepts any
// single non-empty segment.
func segmentsMatch(pattern []pathSegment, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i := range pattern {
		switch pattern[i].kind {
		case segLiteral:
			if pattern[i].text != segs[i] {
				return false
			}
		case segParam:
			if segs[i] == "" {
				return false
			}
		}
	}
	return true
}

// extractValues records the raw string for each parameter segment.
func extractValues(pattern []pathSegment, segs []string) map[string]string {
	values := make(map[string]string)
	for i := range pattern {
		if pattern[i].kind == segParam {
			values[pattern[i].text] = segs[i]
		}
	}
	return values
}
