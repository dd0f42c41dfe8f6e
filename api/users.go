package api

import (
	"context"
	"net/http"

	"github.com/kroma-labs/smoelen/httpclient"
)

// UsersService covers /users.
type UsersService struct {
	client *httpclient.Client
}

// GetUser returns the account the bearer token belongs to.
func (s *UsersService) GetUser(
	ctx context.Context,
	params ...httpclient.RequestParams,
) (*httpclient.Response[User, any], error) {
	return httpclient.Request[User, any](ctx, s.client, httpclient.FullRequest{
		Path:   "/users/me",
		Method: http.MethodGet,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}
