package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/httpclient"
)

// ErrNoItemURL is returned by Download for an item without a signed URL.
var ErrNoItemURL = errors.New("api: item has no download url")

// ItemsService covers /items and the signed item URLs.
type ItemsService struct {
	client *httpclient.Client
}

// UploadItems uploads files into an album as multipart "items" parts.
// Admin only.
func (s *ItemsService) UploadItems(
	ctx context.Context,
	albumID uuid.UUID,
	data BodyUploadItems,
	params ...httpclient.RequestParams,
) (*httpclient.Response[[]Item, HTTPValidationError], error) {
	return httpclient.Request[[]Item, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/items/" + albumID.String(),
		Method: http.MethodPost,
		Body:   data,
		Type:   httpclient.ContentTypeFormData,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// DeleteItems removes items from an album and returns the album. Admin only.
func (s *ItemsService) DeleteItems(
	ctx context.Context,
	albumID uuid.UUID,
	itemIDs []uuid.UUID,
	params ...httpclient.RequestParams,
) (*httpclient.Response[Album, HTTPValidationError], error) {
	if itemIDs == nil {
		itemIDs = []uuid.UUID{}
	}
	return httpclient.Request[Album, HTTPValidationError](ctx, s.client, httpclient.FullRequest{
		Path:   "/items/" + albumID.String() + "/delete",
		Method: http.MethodPost,
		Body:   itemIDs,
		Type:   httpclient.ContentTypeJSON,
		Secure: httpclient.Bool(true),
		Format: httpclient.FormatJSON,
		Params: callParams(params),
	})
}

// Download fetches the original file of item, or its cover image when cover
// is set. The URL is signed, so the request is not secure.
func (s *ItemsService) Download(
	ctx context.Context,
	item Item,
	cover bool,
	params ...httpclient.RequestParams,
) (*httpclient.Response[[]byte, any], error) {
	target := item.Path
	if cover {
		target = item.CoverPath
	}
	if target == "" {
		return nil, ErrNoItemURL
	}

	return httpclient.Request[[]byte, any](ctx, s.client, httpclient.FullRequest{
		Path:   target,
		Method: http.MethodGet,
		Secure: httpclient.Bool(false),
		Format: httpclient.FormatBytes,
		Params: callParams(params),
	})
}
