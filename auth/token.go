package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kroma-labs/smoelen/httpclient"
)

var (
	// ErrNoIDToken is returned when the token response lacks an id_token.
	ErrNoIDToken = errors.New("auth: token response has no id_token")

	// ErrNoExpiry is returned by TokenExpiry for a token without exp.
	ErrNoExpiry = errors.New("auth: token has no exp claim")
)

// TokenResponse is the token endpoint's JSON body.
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// OAuthError is the error body of the token endpoint, and the error
// parameters of a failed authorization redirect.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e OAuthError) Error() string {
	if e.Description == "" {
		return "oauth: " + e.Code
	}
	return "oauth: " + e.Code + ": " + e.Description
}

// Exchange trades an authorization code for the ID token at the token
// endpoint. Transport failures, non-2xx answers and responses without an
// id_token are errors.
func Exchange(ctx context.Context, c *httpclient.Client, cfg Config, code string) (string, error) {
	resp, err := httpclient.Request[TokenResponse, OAuthError](ctx, c, httpclient.FullRequest{
		Path:   cfg.TokenURL(),
		Method: http.MethodPost,
		Body: map[string]string{
			"grant_type":   "authorization_code",
			"code":         code,
			"redirect_uri": cfg.RedirectURL,
			"client_id":    cfg.ClientID,
		},
		Type:   httpclient.ContentTypeURLEncoded,
		Format: httpclient.FormatJSON,
		Secure: httpclient.Bool(false),
		Params: httpclient.RequestParams{
			Headers: map[string]string{"Accept": "application/json"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	tokens, err := resp.Result()
	if err != nil && !errors.Is(err, httpclient.ErrNoData) {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokens.IDToken == "" {
		return "", ErrNoIDToken
	}
	return tokens.IDToken, nil
}

// TokenExpiry decodes the exp claim of token without verifying its
// signature. The token is only ever sent back to the server that issued
// it, which does the verification.
func TokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token must be replaced at now. A missing or
// undecodable token is expired, and so is one whose exp is not after now.
func Expired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return !exp.After(now)
}
