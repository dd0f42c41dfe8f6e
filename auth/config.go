package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultOAuthServer = "http://localhost:8000/o"
	DefaultRedirectURL = "http://localhost:5173"
)

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"openid", "user/basic", "media"}

var (
	// ErrNoClientID is returned by Config.Validate without a client id.
	ErrNoClientID = errors.New("auth: client id is required")

	// ErrInvalidURL is returned by Config.Validate for a malformed server
	// or redirect URL.
	ErrInvalidURL = errors.New("auth: invalid url")
)

// Config describes the OAuth2 client registration.
type Config struct {
	// OAuthServer is the provider's base URL, without the trailing
	// /authorize or /token/.
	OAuthServer string

	ClientID string

	// RedirectURL must match the registration exactly. The login flow
	// listens on its host and port for the callback.
	RedirectURL string

	Scopes []string
}

// DefaultConfig returns the local development registration for clientID.
func DefaultConfig(clientID string) Config {
	return Config{
		OAuthServer: DefaultOAuthServer,
		ClientID:    clientID,
		RedirectURL: DefaultRedirectURL,
		Scopes:      append([]string(nil), DefaultScopes...),
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return ErrNoClientID
	}
	for name, raw := range map[string]string{
		"oauth server": c.OAuthServer,
		"redirect url": c.RedirectURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q", ErrInvalidURL, name, raw)
		}
	}
	return nil
}

func (c Config) scopes() []string {
	if len(c.Scopes) == 0 {
		return DefaultScopes
	}
	return c.Scopes
}

func (c Config) server() string {
	return strings.TrimRight(c.OAuthServer, "/")
}

// TokenURL is the token endpoint.
func (c Config) TokenURL() string {
	return c.server() + "/token/"
}

// AuthorizeURL is the URL the user is sent to, carrying state as the
// anti-forgery value. Parameters keep the provider's documented order.
func (c Config) AuthorizeURL(state string) string {
	pairs := [][2]string{
		{"response_type", "code"},
		{"client_id", c.ClientID},
		{"redirect_uri", c.RedirectURL},
		{"scope", strings.Join(c.scopes(), " ")},
		{"state", state},
	}

	var b strings.Builder
	b.WriteString(c.server())
	b.WriteString("/authorize?")
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}
