// Package gateway implements the page handlers of `smoelen serve` on top
// of the photo API.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/kroma-labs/smoelen/httpserver"
	"github.com/kroma-labs/smoelen/routes"
	"github.com/kroma-labs/smoelen/store"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Gateway serves the routes from the API, one upstream call per request.
type Gateway struct {
	api    *api.API
	state  *store.State
	logger zerolog.Logger
}

// New returns a gateway calling client and tracking the session in state.
func New(client *api.API, state *store.State, logger zerolog.Logger) *Gateway {
	return &Gateway{api: client, state: state, logger: logger}
}

// Handlers returns the page handlers for routes.New.
func (g *Gateway) Handlers() routes.Handlers {
	return routes.Handlers{
		Albums: http.HandlerFunc(g.albums),
		Create: http.HandlerFunc(g.create),
		Album:  http.HandlerFunc(g.album),
		Edit:   http.HandlerFunc(g.edit),
	}
}

// Router is the full route table with the admin guard in place.
func (g *Gateway) Router() http.Handler {
	return routes.New(g.Handlers(), routes.AdminOnly(g.state.User))
}

// EditView is the data of the edit page.
type EditView struct {
	Album    api.Album  `json:"album"`
	Selected []api.Item `json:"selected"`
}

// AlbumView is the data of the album page.
type AlbumView struct {
	Album   api.Album `json:"album"`
	Current *api.Item `json:"current,omitempty"`
}

func (g *Gateway) albums(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	resp, err := g.api.Albums.GetAlbums(r.Context(), forward(r))
	albums, ok := unwrap(g, w, r, resp, err)
	if !ok {
		return
	}
	httpserver.WriteSuccess(w, http.StatusOK, albums, "albums")
}

func (g *Gateway) create(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var body api.AlbumCreate
	if !decodeBody(w, r, &body) {
		return
	}
	resp, err := g.api.Albums.CreateAlbum(r.Context(), body, forward(r))
	album, ok := unwrap(g, w, r, resp, err)
	if !ok {
		return
	}
	httpserver.WriteSuccess(w, http.StatusCreated, album, "album created")
}

func (g *Gateway) album(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	albumID, ok := pathUUID(w, r, "album")
	if !ok {
		return
	}
	resp, err := g.api.Albums.GetAlbum(r.Context(), albumID, forward(r))
	album, ok := unwrap(g, w, r, resp, err)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("current"); raw != "" {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			httpserver.WriteError(w, http.StatusBadRequest, "invalid item id",
				httpserver.Error{Field: "current", Message: err.Error()})
			return
		}
		item, found := findItem(album.Items, itemID)
		if !found {
			httpserver.WriteError(w, http.StatusNotFound, "item not in album",
				httpserver.Error{Field: "current", Message: raw})
			return
		}
		g.state.Current.Set(&item)
	}

	httpserver.WriteSuccess(w, http.StatusOK, AlbumView{Album: album, Current: g.state.Current.Get()}, "album")
}

// edit serves /{album}/{edit}:
//
//	GET     the album and the current selection
//	PATCH   rename the album
//	PUT     replace the selection with the given item ids
//	DELETE  delete the selected items
func (g *Gateway) edit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete) {
		return
	}
	albumID, ok := pathUUID(w, r, "album")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var body api.AlbumCreate
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := g.api.Albums.UpdateAlbum(r.Context(), albumID, body, forward(r))
		album, ok := unwrap(g, w, r, resp, err)
		if !ok {
			return
		}
		httpserver.WriteSuccess(w, http.StatusOK, EditView{Album: album, Selected: g.selected()}, "album updated")

	case http.MethodDelete:
		selected := g.selected()
		ids := make([]uuid.UUID, 0, len(selected))
		for _, item := range selected {
			ids = append(ids, item.ID)
		}
		resp, err := g.api.Items.DeleteItems(r.Context(), albumID, ids, forward(r))
		album, ok := unwrap(g, w, r, resp, err)
		if !ok {
			return
		}
		g.state.Selected.Set(nil)
		httpserver.WriteSuccess(w, http.StatusOK, EditView{Album: album, Selected: []api.Item{}}, "items deleted")

	default:
		resp, err := g.api.Albums.GetAlbum(r.Context(), albumID, forward(r))
		album, ok := unwrap(g, w, r, resp, err)
		if !ok {
			return
		}

		if r.Method == http.MethodPut {
			var ids []uuid.UUID
			if !decodeBody(w, r, &ids) {
				return
			}
			selection := make([]api.Item, 0, len(ids))
			for _, id := range ids {
				item, found := findItem(album.Items, id)
				if !found {
					httpserver.WriteError(w, http.StatusUnprocessableEntity, "item not in album",
						httpserver.Error{Field: "items", Message: id.String()})
					return
				}
				selection = append(selection, item)
			}
			g.state.Selected.Set(selection)
		}

		httpserver.WriteSuccess(w, http.StatusOK, EditView{Album: album, Selected: g.selected()}, "album")
	}
}

func (g *Gateway) selected() []api.Item {
	if s := g.state.Selected.Get(); s != nil {
		return s
	}
	return []api.Item{}
}

// unwrap returns the payload of a successful API call. Failures are written
// to w; a 2xx body that does not parse becomes 502.
func unwrap[T, E any](
	g *Gateway,
	w http.ResponseWriter,
	r *http.Request,
	resp *httpclient.Response[T, E],
	err error,
) (T, bool) {
	var zero T
	if err != nil {
		g.upstreamError(w, r, err)
		return zero, false
	}
	v, err := resp.Result()
	if err != nil {
		g.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unreadable upstream response")
		httpserver.WriteError(w, http.StatusBadGateway, "invalid upstream response")
		return zero, false
	}
	return v, true
}

// upstreamError relays an API failure. Non-2xx answers keep their status;
// transport failures become 502.
func (g *Gateway) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	rf, ok := httpclient.AsRequestFailed(err)
	if !ok {
		g.logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
		httpserver.WriteError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}

	var fields []httpserver.Error
	if v, ok := rf.Payload.(*api.HTTPValidationError); ok {
		for _, d := range v.Detail {
			loc := make([]string, 0, len(d.Loc))
			for _, l := range d.Loc {
				loc = append(loc, fmt.Sprint(l))
			}
			fields = append(fields, httpserver.Error{Field: strings.Join(loc, "."), Message: d.Msg})
		}
	}

	g.logger.Warn().Int("status_code", rf.StatusCode).Str("path", r.URL.Path).Msg("upstream rejected request")
	httpserver.WriteError(w, rf.StatusCode, http.StatusText(rf.StatusCode), fields...)
}

// forward passes the request id upstream. The bearer token is the one the
// API client was built with, so the gateway acts as the logged-in user.
func forward(r *http.Request) httpclient.RequestParams {
	id := httpserver.RequestIDFromContext(r.Context())
	if id == "" {
		return httpclient.RequestParams{}
	}
	return httpclient.RequestParams{Headers: map[string]string{httpserver.RequestIDHeader: id}}
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	httpserver.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(routes.Param(r, name))
	if err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid "+name+" id",
			httpserver.Error{Field: name, Message: err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpserver.WriteError(w, status, "invalid request body",
			httpserver.Error{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func findItem(items []api.Item, id uuid.UUID) (api.Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return api.Item{}, false
}
