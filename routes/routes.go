// Package routes is the route table of the gateway: the album list, a
// single album, and the admin-only create and edit pages.
package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpserver"
)

// Route patterns.
const (
	PathAlbums = "/"
	PathCreate = "/create"
	PathAlbum  = "/{album}"
	PathEdit   = "/{album}/{edit}"
)

// Handlers serve the four pages.
type Handlers struct {
	Albums http.Handler
	Create http.Handler
	Album  http.Handler
	Edit   http.Handler
}

// Condition decides whether a guarded route may be served. An error means
// the decision could not be made.
type Condition func(r *http.Request) (bool, error)

// New builds the router. Every condition must pass for the create and edit
// routes. Nil handlers are skipped.
func New(h Handlers, conditions ...Condition) *chi.Mux {
	r := chi.NewRouter()
	r.Use(recordRoute)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpserver.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpserver.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if h.Albums != nil {
		r.Handle(PathAlbums, h.Albums)
	}
	if h.Create != nil {
		r.Handle(PathCreate, Guard(h.Create, conditions...))
	}
	if h.Album != nil {
		r.Handle(PathAlbum, h.Album)
	}
	if h.Edit != nil {
		r.Handle(PathEdit, Guard(h.Edit, conditions...))
	}
	return r
}

// Guard serves next only when every condition passes. A failed condition
// answers 403, a condition error 502.
func Guard(next http.Handler, conditions ...Condition) http.Handler {
	if len(conditions) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, cond := range conditions {
			ok, err := cond(r)
			if err != nil {
				httpserver.WriteError(w, http.StatusBadGateway, "route condition failed",
					httpserver.Error{Field: "route", Message: err.Error()})
				return
			}
			if !ok {
				httpserver.WriteError(w, http.StatusForbidden, "forbidden",
					httpserver.Error{Field: "route", Message: "condition not met"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UserSource returns the current user. *store.UserStore implements it.
type UserSource interface {
	Get(ctx context.Context) (api.User, error)
}

// AdminOnly passes for administrators.
func AdminOnly(users UserSource) Condition {
	return func(r *http.Request) (bool, error) {
		u, err := users.Get(r.Context())
		if err != nil {
			return false, err
		}
		return u.Admin, nil
	}
}

// Param returns the URL parameter name of the matched route.
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// recordRoute hands the matched pattern to the server's tracing and
// metrics once routing is done.
func recordRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				httpserver.SetRoute(r.Context(), pattern)
			}
		}
	})
}
