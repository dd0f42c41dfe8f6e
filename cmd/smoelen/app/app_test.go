package app

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/auth"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	opts    *GlobalOptions
	mock    *httpclient.MockTransport
	session *auth.FileStore
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "session.json")
	mock := httpclient.NewMockTransport()

	return &cliFixture{
		opts: &GlobalOptions{
			Environ: map[string]string{
				"SMOELEN_CLIENT_ID":    "cid",
				"SMOELEN_API_BASE":     "http://api.local",
				"SMOELEN_SESSION_FILE": sessionFile,
				"XDG_CONFIG_HOME":      dir,
			},
			Transport: mock,
		},
		mock:    mock,
		session: auth.NewFileStore(sessionFile),
	}
}

func (f *cliFixture) login(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, f.session.Set(context.Background(), auth.KeyToken, token))
	return token
}

func (f *cliFixture) run(args ...string) (string, error) {
	cmd := newRootCommand(f.opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_NotLoggedIn(t *testing.T) {
	t.Run("given no session, then not logged in and nothing is stored", func(t *testing.T) {
		f := newCLIFixture(t)

		_, err := f.run("albums", "ls")
		assert.ErrorIs(t, err, ErrNotLoggedIn)
		assert.Zero(t, f.mock.RequestCount())

		_, err = f.session.Get(context.Background(), auth.KeyState)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("given a login waiting for its callback, then its state is kept", func(t *testing.T) {
		f := newCLIFixture(t)
		require.NoError(t, f.session.Set(context.Background(), auth.KeyState, "pending"))

		_, err := f.run("whoami")
		assert.ErrorIs(t, err, ErrNotLoggedIn)

		state, err := f.session.Get(context.Background(), auth.KeyState)
		require.NoError(t, err)
		assert.Equal(t, "pending", state)
	})
}

func TestCLI_UnreadableResponse(t *testing.T) {
	albumID := uuid.New()

	tests := []struct {
		name         string
		method, path string
		args         []string
	}{
		{name: "given an html album list, then an error", method: http.MethodGet, path: "/albums", args: []string{"albums", "ls"}},
		{
			name: "given an html album, then an error", method: http.MethodGet, path: "/albums/" + albumID.String(),
			args: []string{"albums", "show", albumID.String()},
		},
		{name: "given an html user, then an error", method: http.MethodGet, path: "/users/me", args: []string{"whoami"}},
		{
			name: "given an html create answer, then an error", method: http.MethodPost, path: "/albums",
			args: []string{"albums", "create", "--name", "x"},
		},
		{
			name: "given an html delete answer, then an error", method: http.MethodPost,
			path: "/items/" + albumID.String() + "/delete",
			args: []string{"items", "rm", albumID.String(), uuid.NewString()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCLIFixture(t)
			f.login(t)
			f.mock.StubRoute(tt.method, tt.path, http.StatusOK, `<html>maintenance</html>`)

			var err error
			require.NotPanics(t, func() { _, err = f.run(tt.args...) })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode json response")
		})
	}
}

func TestCLI_AlbumsList(t *testing.T) {
	f := newCLIFixture(t)
	token := f.login(t)
	f.mock.StubRoute(http.MethodGet, "/albums", http.StatusOK, `[
		{"id":"6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11","name":"Winter","description":"snow","order":2,"preview":null},
		{"id":"a4d1e1a2-7e0b-4d39-9b5e-3b2b1a9c1e22","name":"Summer","description":"beach","order":1,"preview":null}]`)

	out, err := f.run("albums", "ls")
	require.NoError(t, err)

	assert.Contains(t, out, "Summer")
	assert.Less(t, bytes.Index([]byte(out), []byte("Summer")), bytes.Index([]byte(out), []byte("Winter")),
		"then albums are listed by position")
	assert.Equal(t, "Bearer "+token, f.mock.LastRequest().Header.Get("Authorization"))
}

func TestCLI_Whoami(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mock.StubRoute(http.MethodGet, "/users/me", http.StatusOK, `{"id":"alice","admin":true}`)

	out, err := f.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice (admin)\n", out)
}

func TestCLI_ValidationError(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	f.mock.StubRoute(http.MethodPost, "/albums", http.StatusUnprocessableEntity,
		`{"detail":[{"loc":["body","name"],"msg":"field required","type":"value_error.missing"}]}`)

	_, err := f.run("albums", "create", "--name", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpclient.ErrRequestFailed)
	assert.Contains(t, err.Error(), "body.name: field required")
}

func TestCLI_ItemsRemove(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)
	albumID := uuid.New()
	itemID := uuid.New()
	f.mock.StubRoute(http.MethodPost, "/items/"+albumID.String()+"/delete", http.StatusOK,
		`{"id":"`+albumID.String()+`","name":"A","description":"","order":0,"preview":null,"items":[]}`)

	out, err := f.run("items", "rm", albumID.String(), itemID.String())
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 items, 0 left.\n", out)
	assert.JSONEq(t, `["`+itemID.String()+`"]`, string(f.mock.LastRequest().Body))
}

func TestCLI_Logout(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run("logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)

	_, err = f.session.Get(context.Background(), auth.KeyToken)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCLI_SQLiteSession(t *testing.T) {
	f := newCLIFixture(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "session.db")
	f.opts.Environ["SMOELEN_SESSION_STORE"] = "sqlite"
	f.opts.Environ["SMOELEN_SQLITE_PATH"] = dbPath

	_, err := f.run("whoami")
	require.ErrorIs(t, err, ErrNotLoggedIn)

	sessions, err := auth.OpenSQLStore(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	defer sessions.Close()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, sessions.Set(context.Background(), auth.KeyToken, token))

	f.mock.StubRoute(http.MethodGet, "/users/me", http.StatusOK, `{"id":"bob","admin":false}`)
	out, err := f.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "bob (member)\n", out)

	_, err = f.run("logout")
	require.NoError(t, err)
	_, err = sessions.Get(context.Background(), auth.KeyToken)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestParseOrders(t *testing.T) {
	id := uuid.MustParse("6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11")

	tests := []struct {
		name    string
		args    []string
		want    []api.AlbumOrder
		wantErr bool
	}{
		{
			name: "given id=position pairs, then orders",
			args: []string{id.String() + "=3"},
			want: []api.AlbumOrder{{ID: id, Order: 3}},
		},
		{name: "given no separator, then an error", args: []string{id.String()}, wantErr: true},
		{name: "given a bad id, then an error", args: []string{"abc=1"}, wantErr: true},
		{name: "given a bad position, then an error", args: []string{id.String() + "=first"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOrders(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadOrder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("image/png"))
	assert.Equal(t, "", extension(""))
}
