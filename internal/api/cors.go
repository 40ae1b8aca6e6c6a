package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// The dashboard is a LAN-local tool; the header set is fixed and only the
// origin is configurable.
const (
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, Accept, Origin"
	corsMaxAge  = "86400"
)

func setCORSHeaders(set func(name, value string), origin string) {
	set("Access-Control-Allow-Origin", origin)
	set("Access-Control-Allow-Methods", corsMethods)
	set("Access-Control-Allow-Headers", corsHeaders)
	set("Access-Control-Max-Age", corsMaxAge)
}

// corsMiddleware stamps CORS headers on every API response and short-circuits
// preflight requests that reached a registered operation.
func corsMiddleware(origin string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		setCORSHeaders(ctx.SetHeader, origin)

		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// registerPreflight answers OPTIONS at the mux level; the middleware never
// sees OPTIONS for paths without an operation of that method.
func registerPreflight(mux *http.ServeMux, origin string) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w.Header().Set, origin)
		w.WriteHeader(http.StatusNoContent)
	})
}
