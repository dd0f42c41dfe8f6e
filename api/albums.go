package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/httpclient"
)

// AlbumsService covers /albums.
type AlbumsService struct {
	client *httpclient.Client
}

// GetAlbums lists the albums visible to the caller.
func (s *AlbumsService) GetAlbums(
	ctx context.Context,
	params ...httpclient.RequestParams,
) (*httpclient.Response[[]AlbumList, any], error) {
	return httpclient.Request[[]AlbumList, any](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums",
		Method: http.MethodGet,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// CreateAlbum creates an album. Admin only.
func (s *AlbumsService) CreateAlbum(
	ctx context.Context,
	data AlbumCreate,
	params ...httpclient.RequestParams,
) (*httpclient.Response[AlbumList, HTTPValidationError], error) {
	return httpclient.Request[AlbumList, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums",
		Method: http.MethodPost,
		Body:   data,
		Type:   httpclient.ContentTypeJSON,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// OrderAlbums sets the sort position of the given albums and returns the
// reordered list. Admin only.
func (s *AlbumsService) OrderAlbums(
	ctx context.Context,
	data []AlbumOrder,
	params ...httpclient.RequestParams,
) (*httpclient.Response[[]AlbumList, HTTPValidationError], error) {
	return httpclient.Request[[]AlbumList, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums",
		Method: http.MethodPatch,
		Body:   data,
		Type:   httpclient.ContentTypeJSON,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// GetAlbum returns one album with its items.
func (s *AlbumsService) GetAlbum(
	ctx context.Context,
	albumID uuid.UUID,
	params ...httpclient.RequestParams,
) (*httpclient.Response[Album, HTTPValidationError], error) {
	return httpclient.Request[Album, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums/" + albumID.String(),
		Method: http.MethodGet,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// UpdateAlbum renames or re-describes an album. Admin only.
func (s *AlbumsService) UpdateAlbum(
	ctx context.Context,
	albumID uuid.UUID,
	data AlbumCreate,
	params ...httpclient.RequestParams,
) (*httpclient.Response[Album, HTTPValidationError], error) {
	return httpclient.Request[Album, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums/" + albumID.String(),
		Method: http.MethodPatch,
		Body:   data,
		Type:   httpclient.ContentTypeJSON,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// SetPreview makes itemID the album's preview. Admin only.
func (s *AlbumsService) SetPreview(
	ctx context.Context,
	albumID, itemID uuid.UUID,
	params ...httpclient.RequestParams,
) (*httpclient.Response[Album, HTTPValidationError], error) {
	return httpclient.Request[Album, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/albums/" + albumID.String() + "/preview",
		Method: http.MethodPost,
		Query:  httpclient.QueryParams{"item_id": itemID.String()},
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}
