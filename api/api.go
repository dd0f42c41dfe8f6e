// Package api is the typed surface of the photo-album REST API.
//
// Every method builds a fresh httpclient.FullRequest and returns the typed
// envelope from httpclient.Request: on 2xx Data is set, on any other status
// the envelope comes back with a *httpclient.RequestFailedError whose
// Payload is the decoded error body. A 2xx body that does not parse leaves
// Data nil and sets DecodeErr; Result folds both cases into an error.
//
//	client := api.New("http://localhost:7000", token)
//	resp, err := client.Albums.GetAlbums(ctx)
//	if err != nil {
//	    return err
//	}
//	albums, err := resp.Result()
//	if err != nil {
//	    return err
//	}
//	for _, a := range albums {
//	    fmt.Println(a.Name)
//	}
//
// Each method takes optional per-call httpclient.RequestParams, layered
// over the client's own params in the order given.
package api

import (
	"github.com/kroma-labs/smoelen/httpclient"
)

// API groups the endpoint services around one client.
type API struct {
	*httpclient.Client

	Albums *AlbumsService
	Items  *ItemsService
	Users  *UsersService
}

// New builds the API surface for baseURL. A non-empty token is sent as
// "Authorization: Bearer <token>" on every request.
func New(baseURL, token string, opts ...httpclient.Option) *API {
	base := []httpclient.Option{
		httpclient.WithBaseURL(baseURL),
		httpclient.WithServiceName("smoelen-api"),
	}
	if token != "" {
		base = append(base, httpclient.WithRequestParams(httpclient.BearerHeader(token)))
	}
	return NewWithClient(httpclient.New(append(base, opts...)...))
}

// NewWithClient builds the API surface around an existing client.
func NewWithClient(c *httpclient.Client) *API {
	return &API{
		Client: c,
		Albums: &AlbumsService{client: c},
		Items:  &ItemsService{client: c},
		Users:  &UsersService{client: c},
	}
}

// callParams folds the per-call overrides into one layer.
func callParams(params []httpclient.RequestParams) httpclient.RequestParams {
	if len(params) == 0 {
		return httpclient.RequestParams{}
	}
	return params[0].Merge(params[1:]...)
}
