package proxy

import "github.com/go-chi/chi/v5"

// Mount registers the proxy on route for GET and the OPTIONS preflight.
func (h *Handler) Mount(r chi.Router, route string) {
	r.Get(route, h.ServeHTTP)
	r.Options(route, h.Preflight)
}
