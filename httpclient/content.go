package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ContentType declares how a request body is serialized.
type ContentType string

const (
	ContentTypeJSON       ContentType = "application/json"
	ContentTypeText       ContentType = "text/plain"
	ContentTypeFormData   ContentType = "multipart/form-data"
	ContentTypeURLEncoded ContentType = "application/x-www-form-urlencoded"
)

// ErrUnsupportedBody is returned when a body cannot be serialized for the
// declared content type.
var ErrUnsupportedBody = errors.New("httpclient: unsupported body for content type")

// File is a binary part of a multipart body.
//
// Either Reader or Path must be set. A Path is opened only while the body
// is being formatted.
type File struct {
	// Name is the file name sent in the Content-Disposition header.
	// Defaults to the base name of Path, or "blob".
	Name string

	// ContentType of the part. Guessed from the name when empty.
	ContentType string

	Reader io.Reader
	Path   string
}

// OpenFile returns a File that reads from path when the request is sent.
func OpenFile(path string) File {
	return File{Name: filepath.Base(path), Path: path}
}

// FormFielder is implemented by typed multipart bodies.
type FormFielder interface {
	FormFields() map[string]any
}

// formattedBody is a serialized request body.
type formattedBody struct {
	reader io.Reader

	// contentType overrides the declared type (multipart boundary).
	contentType string

	// raw holds the bytes when the body was buffered, for cURL output.
	raw []byte
}

// formatBody serializes body according to kind. A nil body yields an
// empty formattedBody.
func formatBody(kind ContentType, body any) (formattedBody, error) {
	if body == nil {
		return formattedBody{}, nil
	}

	switch kind {
	case "", ContentTypeJSON:
		return formatJSON(body)
	case ContentTypeText:
		if s, ok := body.(string); ok {
			return buffered([]byte(s)), nil
		}
		return formatJSON(body)
	case ContentTypeFormData:
		return formatMultipart(body)
	case ContentTypeURLEncoded:
		return formatURLEncoded(body)
	default:
		if fb, ok := passthrough(body); ok {
			return fb, nil
		}
		if s, ok := body.(string); ok {
			return buffered([]byte(s)), nil
		}
		return formattedBody{}, fmt.Errorf("%w: %s with %T", ErrUnsupportedBody, kind, body)
	}
}

func buffered(b []byte) formattedBody {
	return formattedBody{reader: bytes.NewReader(b), raw: b}
}

// passthrough handles bodies that are already serialized.
func passthrough(body any) (formattedBody, bool) {
	switch v := body.(type) {
	case []byte:
		return buffered(v), true
	case io.Reader:
		return formattedBody{reader: v}, true
	default:
		return formattedBody{}, false
	}
}

func formatJSON(body any) (formattedBody, error) {
	if fb, ok := passthrough(body); ok {
		return fb, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return formattedBody{}, fmt.Errorf("encode json body: %w", err)
	}
	return buffered(b), nil
}

func formatURLEncoded(body any) (formattedBody, error) {
	switch v := body.(type) {
	case QueryParams:
		return buffered([]byte(ToQueryString(v))), nil
	case map[string]any:
		return buffered([]byte(ToQueryString(v))), nil
	case map[string]string:
		params := make(QueryParams, len(v))
		for k, s := range v {
			params[k] = s
		}
		return buffered([]byte(ToQueryString(params))), nil
	case url.Values:
		params := make(QueryParams, len(v))
		for k, s := range v {
			params[k] = s
		}
		return buffered([]byte(ToQueryString(params))), nil
	case string:
		return buffered([]byte(v)), nil
	}
	if fb, ok := passthrough(body); ok {
		return fb, nil
	}
	return formattedBody{}, fmt.Errorf("%w: %s with %T", ErrUnsupportedBody, ContentTypeURLEncoded, body)
}

func formatMultipart(body any) (formattedBody, error) {
	var fields map[string]any
	switch v := body.(type) {
	case FormFielder:
		fields = v.FormFields()
	case map[string]any:
		fields = v
	default:
		return formattedBody{}, fmt.Errorf("%w: %s with %T", ErrUnsupportedBody, ContentTypeFormData, body)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, key := range keys {
		if err := writeFormValue(w, key, fields[key]); err != nil {
			return formattedBody{}, fmt.Errorf("encode form field %q: %w", key, err)
		}
	}

	if err := w.Close(); err != nil {
		return formattedBody{}, err
	}

	return formattedBody{
		reader:      bytes.NewReader(buf.Bytes()),
		contentType: w.FormDataContentType(),
		raw:         buf.Bytes(),
	}, nil
}

func writeFormValue(w *multipart.Writer, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case File:
		return writeFilePart(w, key, v)
	case *File:
		if v == nil {
			return nil
		}
		return writeFilePart(w, key, *v)
	case []File:
		for _, f := range v {
			if err := writeFilePart(w, key, f); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		return writeFilePart(w, key, File{Reader: bytes.NewReader(v)})
	case string:
		return w.WriteField(key, v)
	}

	switch reflect.Indirect(reflect.ValueOf(value)).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return w.WriteField(key, string(b))
	default:
		return w.WriteField(key, formatScalar(value))
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, key string, f File) error {
	reader := f.Reader
	name := f.Name

	if reader == nil {
		if f.Path == "" {
			return errors.New("file has neither reader nor path")
		}
		fh, err := os.Open(f.Path)
		if err != nil {
			return err
		}
		defer fh.Close()
		reader = fh
		if name == "" {
			name = filepath.Base(f.Path)
		}
	}
	if name == "" {
		name = "blob"
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(key), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, reader)
	return err
}
