package gateway_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/kroma-labs/smoelen/httpserver"
	"github.com/kroma-labs/smoelen/internal/gateway"
	"github.com/kroma-labs/smoelen/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	albumID = uuid.MustParse("6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11")
	itemA   = uuid.MustParse("a4d1e1a2-7e0b-4d39-9b5e-3b2b1a9c1e22")
	itemB   = uuid.MustParse("b5e2f2b3-8f1c-4e4a-8c6c-4c3c2b0d2f33")
)

const albumJSON = `{"id":"6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11","name":"Summer","description":"","order":1,"preview":null,"items":[
	{"id":"a4d1e1a2-7e0b-4d39-9b5e-3b2b1a9c1e22","date":"2024-07-01T10:00:00","width":10,"height":10,"type":1,"user":"u1","path":"http://x/a","cover_path":"http://x/a.jpg"},
	{"id":"b5e2f2b3-8f1c-4e4a-8c6c-4c3c2b0d2f33","date":"2024-07-02T10:00:00","width":10,"height":10,"type":2,"user":"u1","path":"http://x/b","cover_path":"http://x/b.jpg"}]}`

type fixture struct {
	mock    *httpclient.MockTransport
	state   *store.State
	handler http.Handler
}

func newFixture(admin bool) *fixture {
	mock := httpclient.NewMockTransport()
	if admin {
		mock.StubRoute(http.MethodGet, "/users/me", http.StatusOK, `{"id":"u1","admin":true}`)
	} else {
		mock.StubRoute(http.MethodGet, "/users/me", http.StatusOK, `{"id":"u2","admin":false}`)
	}

	client := api.New("http://api.local", "tok", httpclient.WithMockTransport(mock))
	state := store.NewState(client.Users)
	gw := gateway.New(client, state, zerolog.Nop())

	return &fixture{
		mock:    mock,
		state:   state,
		handler: httpserver.RequestID()(gw.Router()),
	}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(httpserver.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upstream(method, path string) []httpclient.RecordedRequest {
	var out []httpclient.RecordedRequest
	for _, r := range f.mock.Requests() {
		if r.Method == method && r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type envelope struct {
	Data    json.RawMessage    `json:"data"`
	Errors  []httpserver.Error `json:"errors"`
	Message string             `json:"message"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestGateway_Albums(t *testing.T) {
	f := newFixture(false)
	f.mock.StubRoute(http.MethodGet, "/albums", http.StatusOK, `[{"id":"6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11","name":"Summer","description":"","order":1,"preview":null}]`)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var albums []api.AlbumList
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &albums))
	require.Len(t, albums, 1)
	assert.Equal(t, "Summer", albums[0].Name)

	calls := f.upstream(http.MethodGet, "/albums")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer tok", calls[0].Header.Get("Authorization"))
	assert.Equal(t, "req-1", calls[0].Header.Get(httpserver.RequestIDHeader), "then the request id is forwarded")

	rec = f.do(http.MethodPost, "/", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGateway_Create(t *testing.T) {
	tests := []struct {
		name        string
		admin       bool
		body        string
		wantStatus  int
		wantCreates int
	}{
		{name: "given an admin, then the album is created", admin: true, body: `{"name":"New"}`, wantStatus: http.StatusCreated, wantCreates: 1},
		{name: "given a non admin, then forbidden and nothing created", admin: false, body: `{"name":"New"}`, wantStatus: http.StatusForbidden},
		{name: "given a malformed body, then bad request", admin: true, body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.admin)
			f.mock.StubRoute(http.MethodPost, "/albums", http.StatusOK, `{"id":"6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11","name":"New","description":"","order":0,"preview":null}`)

			rec := f.do(http.MethodPost, "/create", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			creates := f.upstream(http.MethodPost, "/albums")
			require.Len(t, creates, tt.wantCreates)
			if tt.wantCreates > 0 {
				assert.JSONEq(t, `{"name":"New","description":""}`, string(creates[0].Body))
			}
		})
	}
}

func TestGateway_Album(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantStatus  int
		wantCurrent *uuid.UUID
	}{
		{name: "given an album id, then the album", target: "/" + albumID.String(), wantStatus: http.StatusOK},
		{name: "given a current item, then it becomes current", target: "/" + albumID.String() + "?current=" + itemB.String(), wantStatus: http.StatusOK, wantCurrent: &itemB},
		{name: "given an item of another album, then not found", target: "/" + albumID.String() + "?current=" + uuid.NewString(), wantStatus: http.StatusNotFound},
		{name: "given a malformed album id, then bad request", target: "/summer", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			f.mock.StubRoute(http.MethodGet, "/albums/"+albumID.String(), http.StatusOK, albumJSON)

			rec := f.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantCurrent == nil {
				assert.Nil(t, f.state.Current.Get())
				return
			}
			require.NotNil(t, f.state.Current.Get())
			assert.Equal(t, *tt.wantCurrent, f.state.Current.Get().ID)

			var view gateway.AlbumView
			require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
			assert.Equal(t, *tt.wantCurrent, view.Current.ID)
		})
	}
}

func TestGateway_Edit(t *testing.T) {
	f := newFixture(true)
	editPath := "/" + albumID.String() + "/edit"
	f.mock.StubRoute(http.MethodGet, "/albums/"+albumID.String(), http.StatusOK, albumJSON)
	f.mock.StubRoute(http.MethodPost, "/items/"+albumID.String()+"/delete", http.StatusOK, albumJSON)
	f.mock.StubRoute(http.MethodPatch, "/albums/"+albumID.String(), http.StatusOK, albumJSON)

	rec := f.do(http.MethodPut, editPath, `["`+itemA.String()+`"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.state.Selected.Get(), 1)
	assert.Equal(t, itemA, f.state.Selected.Get()[0].ID)

	rec = f.do(http.MethodPut, editPath, `["`+uuid.NewString()+`"]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "given an unknown item, then the selection is rejected")
	assert.Len(t, f.state.Selected.Get(), 1)

	rec = f.do(http.MethodPatch, editPath, `{"name":"Renamed","description":"d"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	patches := f.upstream(http.MethodPatch, "/albums/"+albumID.String())
	require.Len(t, patches, 1)
	assert.JSONEq(t, `{"name":"Renamed","description":"d"}`, string(patches[0].Body))

	rec = f.do(http.MethodDelete, editPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	deletes := f.upstream(http.MethodPost, "/items/"+albumID.String()+"/delete")
	require.Len(t, deletes, 1)
	assert.JSONEq(t, `["`+itemA.String()+`"]`, string(deletes[0].Body))
	assert.Empty(t, f.state.Selected.Get(), "then the selection is cleared")

	var view gateway.EditView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Empty(t, view.Selected)
	assert.Len(t, view.Album.Items, 2)

	assert.Len(t, f.upstream(http.MethodGet, "/users/me"), 1, "then the admin check is fetched once")
}

func TestGateway_UpstreamErrors(t *testing.T) {
	t.Run("given a validation error, then its status and fields are relayed", func(t *testing.T) {
		f := newFixture(false)
		f.mock.StubRoute(http.MethodGet, "/albums/"+albumID.String(), http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["path","album_id"],"msg":"value is not a valid uuid","type":"type_error.uuid"}]}`)

		rec := f.do(http.MethodGet, "/"+albumID.String(), "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		e := decode(t, rec)
		require.Len(t, e.Errors, 1)
		assert.Equal(t, "path.album_id", e.Errors[0].Field)
		assert.Equal(t, "value is not a valid uuid", e.Errors[0].Message)
	})

	t.Run("given a transport failure, then bad gateway", func(t *testing.T) {
		f := newFixture(false)
		f.mock.StubError(errors.New("connection refused"))

		rec := f.do(http.MethodGet, "/", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "upstream unavailable", decode(t, rec).Message)
	})

	unreadable := []struct {
		name         string
		admin        bool
		method, path string
		target, body string
	}{
		{name: "given an html albums page, then bad gateway", method: http.MethodGet, path: "/albums", target: "/"},
		{
			name:   "given an html album page, then bad gateway",
			method: http.MethodGet, path: "/albums/" + albumID.String(), target: "/" + albumID.String(),
		},
		{
			name:   "given an html update answer, then bad gateway",
			admin:  true,
			method: http.MethodPatch, path: "/albums/" + albumID.String(), target: "/" + albumID.String() + "/edit",
			body: `{"name":"Winter","description":""}`,
		},
	}
	for _, tt := range unreadable {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.admin)
			f.mock.StubRoute(tt.method, tt.path, http.StatusOK, `<html>maintenance</html>`)

			rec := f.do(tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Equal(t, "invalid upstream response", decode(t, rec).Message)
		})
	}
}
