package api

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/httpclient"
)

// ItemType tells images from videos.
type ItemType int

const (
	ItemImage ItemType = 1
	ItemVideo ItemType = 2
)

func (t ItemType) String() string {
	switch t {
	case ItemImage:
		return "image"
	case ItemVideo:
		return "video"
	default:
		return fmt.Sprintf("ItemType(%d)", int(t))
	}
}

// Item is one uploaded photo or video. Path and CoverPath are signed,
// absolute URLs to the original and its cover image.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Date      time.Time `json:"date"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Type      ItemType  `json:"type"`
	User      string    `json:"user"`
	Path      string    `json:"path"`
	CoverPath string    `json:"cover_path"`
}

// timestampLayouts are tried in order. The server stores naive timestamps,
// which are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// UnmarshalJSON accepts dates with or without a zone.
func (i *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(i)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		i.Date = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, aux.Date); err == nil {
			i.Date = t
			return nil
		}
	}
	return fmt.Errorf("item %s: unrecognized date %q", i.ID, aux.Date)
}

// Album is an album with all of its items.
type Album struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Items       []Item    `json:"items"`
	Order       int       `json:"order"`
	Preview     *Item     `json:"preview"`
}

// AlbumList is an album as listed, without its items.
type AlbumList struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Preview     *Item     `json:"preview"`
}

// AlbumCreate is the payload for creating or updating an album.
type AlbumCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AlbumOrder assigns a sort position to an album.
type AlbumOrder struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
}

// BodyUploadItems is the multipart payload of an upload. Every file is sent
// as an "items" part.
type BodyUploadItems struct {
	Items []httpclient.File
}

// FormFields implements httpclient.FormFielder.
func (b BodyUploadItems) FormFields() map[string]any {
	return map[string]any{"items": b.Items}
}

// User is the authenticated account.
type User struct {
	ID    string `json:"id"`
	Admin bool   `json:"admin"`
}

// ValidationError is one problem reported by the server's request
// validation. Loc mixes field names and list indexes.
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// HTTPValidationError is the error body of a 422 response.
type HTTPValidationError struct {
	Detail []ValidationError `json:"detail,omitempty"`
}

func (e HTTPValidationError) Error() string {
	if len(e.Detail) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Detail))
	for _, d := range e.Detail {
		loc := make([]string, 0, len(d.Loc))
		for _, l := range d.Loc {
			loc = append(loc, fmt.Sprint(l))
		}
		msgs = append(msgs, strings.Join(loc, ".")+": "+d.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
