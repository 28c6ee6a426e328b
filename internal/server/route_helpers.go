package server

import (
	"net/http"
	"sort"
	"strings"
)

// RouteHandler is a function type for HTTP handlers.
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers.
type MethodRouter map[string]RouteHandler

// Allow lists the routed methods in the form of an Allow header.
func (m MethodRouter) Allow() string {
	methods := make([]string, 0, len(m)+1)
	for method := range m {
		methods = append(methods, method)
	}
	if _, ok := m[http.MethodGet]; ok {
		if _, ok := m[http.MethodHead]; !ok {
			methods = append(methods, http.MethodHead)
		}
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// RouteByMethod dispatches on the request method. HEAD falls back to the
// GET handler; unrouted methods get 405 with an Allow header.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok && r.Method == http.MethodHead {
		handler, ok = routes[http.MethodGet]
	}
	if !ok {
		w.Header().Set("Allow", routes.Allow())
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

// RouteResourceCollection routes a collection: GET lists, POST creates.
// A nil handler leaves its method unrouted.
func RouteResourceCollection(w http.ResponseWriter, r *http.Request, list, create RouteHandler) {
	routes := make(MethodRouter, 2)
	if list != nil {
		routes[http.MethodGet] = list
	}
	if create != nil {
		routes[http.MethodPost] = create
	}
	RouteByMethod(w, r, routes)
}
