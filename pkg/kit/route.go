package kit

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

// RoutePattern returns the matched chi pattern, or a fixed label for requests
// no route matched so arbitrary paths never become metric labels. A pattern
// ending in a wildcard is what chi leaves behind when a mounted subrouter
// matched nothing; the service registers no wildcard routes of its own.
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	rp := rctx.RoutePattern()
	if rp == "" || strings.HasSuffix(rp, "*") {
		return unmatchedRoute
	}
	return rp
}
