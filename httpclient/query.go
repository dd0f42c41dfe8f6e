package httpclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// QueryParams maps query keys to values.
//
// A value may be a scalar (string, number, bool, fmt.Stringer) or a
// slice/array of scalars. Slices expand to one key=value pair per element.
// Keys whose value is nil (or a nil pointer) are treated as absent and
// never appear in the encoded output.
type QueryParams map[string]any

// uriComponentReplacer restores the characters encodeURIComponent leaves
// untouched but url.QueryEscape escapes.
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s the way encodeURIComponent does:
// unreserved characters A-Z a-z 0-9 - _ . ! ~ * ' ( ) are kept and a space
// becomes %20.
func EscapeComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// ToQueryString encodes params as "k1=v1&k2=v2". Keys are emitted in
// sorted order. An empty or all-nil input yields "".
func ToQueryString(params QueryParams) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if isAbsent(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fragments := make([]string, 0, len(keys))
	for _, k := range keys {
		v := reflect.ValueOf(params[k])
		for v.Kind() == reflect.Pointer {
			v = v.Elem()
		}

		if isList(v) {
			if v.Len() > 0 {
				fragments = append(fragments, encodeList(k, v))
			}
			continue
		}
		fragments = append(fragments, encodePair(k, v.Interface()))
	}

	return strings.Join(fragments, "&")
}

// AddQueryParams returns "?" followed by the encoded params, or "" when
// nothing is left to encode.
func AddQueryParams(params QueryParams) string {
	qs := ToQueryString(params)
	if qs == "" {
		return ""
	}
	return "?" + qs
}

func encodePair(key string, value any) string {
	return EscapeComponent(key) + "=" + EscapeComponent(formatScalar(value))
}

func encodeList(key string, v reflect.Value) string {
	pairs := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		pairs = append(pairs, encodePair(key, v.Index(i).Interface()))
	}
	return strings.Join(pairs, "&")
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func isList(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte and fixed byte arrays (uuid.UUID) are scalars.
		return v.Type().Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

// formatScalar renders a single query value.
func formatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
