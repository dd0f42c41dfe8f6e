package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kroma-labs/smoelen/auth"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	return signedToken(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
}

func testConfig() auth.Config {
	cfg := auth.DefaultConfig("client-1")
	cfg.OAuthServer = "http://oauth.local/o"
	return cfg
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     auth.Config
		wantErr error
	}{
		{name: "given the defaults with a client id, then valid", cfg: auth.DefaultConfig("cid")},
		{name: "given no client id, then ErrNoClientID", cfg: auth.DefaultConfig(""), wantErr: auth.ErrNoClientID},
		{
			name:    "given a relative oauth server, then ErrInvalidURL",
			cfg:     auth.Config{ClientID: "cid", OAuthServer: "/o", RedirectURL: auth.DefaultRedirectURL},
			wantErr: auth.ErrInvalidURL,
		},
		{
			name:    "given no redirect url, then ErrInvalidURL",
			cfg:     auth.Config{ClientID: "cid", OAuthServer: auth.DefaultOAuthServer},
			wantErr: auth.ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_URLs(t *testing.T) {
	cfg := auth.DefaultConfig("client-1")
	cfg.OAuthServer = "http://localhost:8000/o/"

	assert.Equal(t, "http://localhost:8000/o/token/", cfg.TokenURL())
	assert.Equal(t,
		"http://localhost:8000/o/authorize?response_type=code&client_id=client-1"+
			"&redirect_uri=http%3A%2F%2Flocalhost%3A5173&scope=openid+user%2Fbasic+media&state=s-1",
		cfg.AuthorizeURL("s-1"),
	)

	u, err := url.Parse(cfg.AuthorizeURL("s-1"))
	require.NoError(t, err)
	assert.Equal(t, "openid user/basic media", u.Query().Get("scope"))

	cfg.Scopes = nil
	u, err = url.Parse(cfg.AuthorizeURL("s-2"))
	require.NoError(t, err)
	assert.Equal(t, "openid user/basic media", u.Query().Get("scope"), "given no scopes, then the defaults are requested")
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  bool
	}{
		{
			name:  "given no token, then expired",
			token: func(*testing.T) string { return "" },
			want:  true,
		},
		{
			name:  "given garbage, then expired",
			token: func(*testing.T) string { return "not-a-jwt" },
			want:  true,
		},
		{
			name: "given a token without exp, then expired",
			token: func(t *testing.T) string {
				return signedToken(t, jwt.RegisteredClaims{Subject: "user-1"})
			},
			want: true,
		},
		{
			name:  "given exp in the past, then expired",
			token: func(t *testing.T) string { return tokenExpiringAt(t, testNow.Add(-time.Minute)) },
			want:  true,
		},
		{
			name:  "given exp exactly now, then expired",
			token: func(t *testing.T) string { return tokenExpiringAt(t, testNow) },
			want:  true,
		},
		{
			name:  "given exp in the future, then valid",
			token: func(t *testing.T) string { return tokenExpiringAt(t, testNow.Add(time.Hour)) },
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Expired(tt.token(t), testNow))
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	exp, err := auth.TokenExpiry(tokenExpiringAt(t, testNow))
	require.NoError(t, err)
	assert.True(t, exp.Equal(testNow))

	_, err = auth.TokenExpiry(signedToken(t, jwt.RegisteredClaims{}))
	assert.ErrorIs(t, err, auth.ErrNoExpiry)
}

func TestExchange(t *testing.T) {
	tests := []struct {
		name      string
		stub      func(m *httpclient.MockTransport)
		wantToken string
		wantErr   func(t *testing.T, err error)
	}{
		{
			name: "given an id_token, then it is returned",
			stub: func(m *httpclient.MockTransport) {
				m.StubJSON(http.StatusOK, map[string]any{"id_token": "id-1", "access_token": "acc"})
			},
			wantToken: "id-1",
		},
		{
			name: "given no id_token, then ErrNoIDToken",
			stub: func(m *httpclient.MockTransport) {
				m.StubJSON(http.StatusOK, map[string]any{"access_token": "acc"})
			},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, auth.ErrNoIDToken)
			},
		},
		{
			name: "given a 400, then the oauth error is carried",
			stub: func(m *httpclient.MockTransport) {
				m.StubJSON(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			},
			wantErr: func(t *testing.T, err error) {
				rf, ok := httpclient.AsRequestFailed(err)
				require.True(t, ok)
				assert.Equal(t, http.StatusBadRequest, rf.StatusCode)
				payload, ok := rf.Payload.(*auth.OAuthError)
				require.True(t, ok)
				assert.Equal(t, "invalid_grant", payload.Code)
			},
		},
		{
			name: "given a non-json body, then a decode error",
			stub: func(m *httpclient.MockTransport) {
				m.StubResponse(http.StatusOK, "<html>")
			},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decode token response")
			},
		},
		{
			name: "given a transport failure, then it is returned",
			stub: func(m *httpclient.MockTransport) {
				m.StubError(errors.New("connection refused"))
			},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httpclient.NewMockTransport()
			tt.stub(mock)
			client := httpclient.New(httpclient.WithMockTransport(mock))

			token, err := auth.Exchange(context.Background(), client, testConfig(), "code-1")
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)

			req := mock.LastRequest()
			require.NotNil(t, req)
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, "http://oauth.local/o/token/", req.URL.String())
			assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))

			form, err := url.ParseQuery(string(req.Body))
			require.NoError(t, err)
			assert.Equal(t, url.Values{
				"grant_type":   {"authorization_code"},
				"code":         {"code-1"},
				"redirect_uri": {"http://localhost:5173"},
				"client_id":    {"client-1"},
			}, form)
		})
	}
}
