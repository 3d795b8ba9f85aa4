package strand

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRoute(t *testing.T, method, pattern string) *routeInfo {
	t.Helper()
	segs, err := parsePattern(pattern)
	require.NoError(t, err)
	return &routeInfo{
		method:     method,
		pattern:    canonicalPattern(segs),
		segments:   segs,
		paramCount: countParams(segs),
	}
}

func TestRouteTable_insert_duplicateShape(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodGet, "/items/{item_id}")))

	// Same shape under a different parameter name collides.
	err := tbl.insert(mustRoute(t, http.MethodGet, "/items/{id}"))
	var dup *DuplicateRouteError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, http.MethodGet, dup.Method)
	assert.Equal(t, "/items/{id}", dup.Pattern)
}

func TestRouteTable_insert_sameShapeOtherMethod(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodGet, "/items/{item_id}")))
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodPut, "/items/{item_id}")))
}

func TestRouteTable_insert_dottedAndModernCollide(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodGet, "app.api.ping")))

	err := tbl.insert(mustRoute(t, http.MethodGet, "/app/api/ping"))
	var dup *DuplicateRouteError
	require.ErrorAs(t, err, &dup)
}

func TestRouteTable_match_literalBeatsParam(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	param := mustRoute(t, http.MethodGet, "/items/{item_id}")
	literal := mustRoute(t, http.MethodGet, "/items/featured")

	// The parameterized route registers first and still loses.
	require.NoError(t, tbl.insert(param))
	require.NoError(t, tbl.insert(literal))

	ri, values, allow := tbl.match(http.MethodGet, []string{"items", "featured"})
	require.NotNil(t, ri)
	assert.Same(t, literal, ri)
	assert.Empty(t, values)
	assert.Nil(t, allow)

	ri, values, _ = tbl.match(http.MethodGet, []string{"items", "42"})
	require.NotNil(t, ri)
	assert.Same(t, param, ri)
	assert.Equal(t, map[string]string{"item_id": "42"}, values)
}

func TestRouteTable_match_tieGoesToFirstRegistered(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	first := mustRoute(t, http.MethodGet, "/{a}/x")
	second := mustRoute(t, http.MethodGet, "/y/{b}")
	require.NoError(t, tbl.insert(first))
	require.NoError(t, tbl.insert(second))

	// Both match /y/x with one parameter each.
	ri, _, _ := tbl.match(http.MethodGet, []string{"y", "x"})
	require.NotNil(t, ri)
	assert.Same(t, first, ri)
}

func TestRouteTable_match_methodNotAllowed(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodPost, "/items")))
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodGet, "/items")))

	ri, values, allow := tbl.match(http.MethodDelete, []string{"items"})
	assert.Nil(t, ri)
	assert.Nil(t, values)
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, allow)
}

func TestRouteTable_match_notFound(t *testing.T) {
	t.Parallel()

	tbl := newRouteTable()
	require.NoError(t, tbl.insert(mustRoute(t, http.MethodGet, "/items")))

	ri, values, allow := tbl.match(http.MethodGet, []string{"widgets"})
	assert.Nil(t, ri)
	assert.Nil(t, values)
	assert.Nil(t, allow)
}

func TestSegmentsMatch_caseAndEmpty(t *testing.T) {
	t.Parallel()

	segs, err := parsePattern("/Items/{id}")
	require.NoError(t, err)

	// Literals are case-sensitive; parameters reject empty segments.
	assert.True(t, segmentsMatch(segs, []string{"Items", "42"}))
	assert.False(t, segmentsMatch(segs, []string{"items", "42"}))
	assert.False(t, segmentsMatch(segs, []string{"Items", ""}))
	assert.False(t, segmentsMatch(segs, []string{"Items"}))
}
