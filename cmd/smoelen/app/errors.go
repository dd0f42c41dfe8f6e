package app

import (
	"fmt"
	"mime"

	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
)

// wrap names the failed operation and spells out validation failures,
// which the status line alone does not explain.
func wrap(op string, err error) error {
	if rf, ok := httpclient.AsRequestFailed(err); ok {
		if v, ok := rf.Payload.(*api.HTTPValidationError); ok {
			return fmt.Errorf("%s: %w: %s", op, err, v.Error())
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
