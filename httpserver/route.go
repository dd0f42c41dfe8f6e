package httpserver

import (
	"context"
	"net/http"
)

type routeKey struct{}

type routeSlot struct {
	pattern string
}

// withRouteSlot makes sure r carries a slot the router can fill with the
// matched route template.
func withRouteSlot(r *http.Request) (*http.Request, *routeSlot) {
	if slot, ok := r.Context().Value(routeKey{}).(*routeSlot); ok {
		return r, slot
	}
	slot := &routeSlot{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, slot)), slot
}

// SetRoute records the route template that matched the request
// ("/{album}/{edit}"). Tracing and metrics use it in place of the raw path
// so album ids stay out of span names and metric attributes.
func SetRoute(ctx context.Context, pattern string) {
	if slot, ok := ctx.Value(routeKey{}).(*routeSlot); ok {
		slot.pattern = pattern
	}
}
