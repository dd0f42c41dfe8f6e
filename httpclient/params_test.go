package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestParams_Merge(t *testing.T) {
	tests := []struct {
		name   string
		base   RequestParams
		layers []RequestParams
		want   RequestParams
	}{
		{
			name:   "given no layers, then returns a copy of the base",
			base:   DefaultRequestParams(),
			layers: nil,
			want: RequestParams{
				Headers:        map[string]string{},
				Credentials:    CredentialsSameOrigin,
				Redirect:       RedirectFollow,
				ReferrerPolicy: ReferrerNoReferrer,
			},
		},
		{
			name: "given headers in several layers, then the later layer wins per key",
			base: RequestParams{Headers: map[string]string{"X-A": "default", "X-B": "default"}},
			layers: []RequestParams{
				{Headers: map[string]string{"X-A": "instance", "X-C": "instance"}},
				{Headers: map[string]string{"x-a": "call"}},
			},
			want: RequestParams{Headers: map[string]string{
				"X-A": "call",
				"X-B": "default",
				"X-C": "instance",
			}},
		},
		{
			name: "given zero fields in a layer, then they inherit",
			base: DefaultRequestParams(),
			layers: []RequestParams{
				{Credentials: CredentialsInclude},
				{Format: FormatJSON},
			},
			want: RequestParams{
				Headers:        map[string]string{},
				Credentials:    CredentialsInclude,
				Redirect:       RedirectFollow,
				ReferrerPolicy: ReferrerNoReferrer,
				Format:         FormatJSON,
			},
		},
		{
			name:   "given secure false in a later layer, then it overrides true",
			base:   RequestParams{Secure: Bool(true)},
			layers: []RequestParams{{Secure: Bool(false)}},
			want:   RequestParams{Headers: map[string]string{}, Secure: Bool(false)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.Merge(tt.layers...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestParams_MergeDoesNotMutate(t *testing.T) {
	base := RequestParams{Headers: map[string]string{"X-A": "1"}}
	layer := RequestParams{Headers: map[string]string{"X-B": "2"}}

	merged := base.Merge(layer)
	merged.Headers["X-C"] = "3"

	assert.Equal(t, map[string]string{"X-A": "1"}, base.Headers)
	assert.Equal(t, map[string]string{"X-B": "2"}, layer.Headers)
}

func TestCheckRedirect(t *testing.T) {
	origin, _ := url.Parse("http://api.local")

	newRedirect := func(t *testing.T, target string, p RequestParams) *http.Request {
		t.Helper()
		ctx := withPolicy(context.Background(), p, origin)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		require.NoError(t, err)
		req.Header.Set("Referer", "http://api.local/albums")
		req.Header.Set("Cookie", "session=1")
		return req
	}
	via := []*http.Request{{URL: origin}}

	tests := []struct {
		name       string
		target     string
		params     RequestParams
		wantErr    error
		wantCookie bool
	}{
		{
			name:       "given follow on the same origin, then keeps cookies and drops referer",
			target:     "http://api.local/next",
			params:     DefaultRequestParams(),
			wantCookie: true,
		},
		{
			name:       "given follow to another origin, then drops cookies",
			target:     "http://cdn.local/file",
			params:     DefaultRequestParams(),
			wantCookie: false,
		},
		{
			name:    "given manual, then stops at the redirect response",
			target:  "http://api.local/next",
			params:  DefaultRequestParams().Merge(RequestParams{Redirect: RedirectManual}),
			wantErr: http.ErrUseLastResponse,
		},
		{
			name:    "given error, then fails",
			target:  "http://api.local/next",
			params:  DefaultRequestParams().Merge(RequestParams{Redirect: RedirectError}),
			wantErr: ErrRedirectBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRedirect(t, tt.target, tt.params)

			err := checkRedirect(req, via)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, req.Header.Get("Referer"))
			assert.Equal(t, tt.wantCookie, req.Header.Get("Cookie") != "")
		})
	}
}

func TestCheckRedirect_Limit(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://api.local/loop", nil)
	require.NoError(t, err)

	via := make([]*http.Request, maxRedirects)
	for i := range via {
		via[i] = req
	}

	assert.Error(t, checkRedirect(req, via))
}

func TestAllowsCredentials(t *testing.T) {
	origin, _ := url.Parse("http://api.local:7000")
	same, _ := url.Parse("http://api.local:7000/albums")
	other, _ := url.Parse("http://files.local/x.jpg")

	tests := []struct {
		name   string
		mode   CredentialsMode
		origin *url.URL
		target *url.URL
		want   bool
	}{
		{name: "given include, then always allows", mode: CredentialsInclude, origin: origin, target: other, want: true},
		{name: "given omit, then never allows", mode: CredentialsOmit, origin: origin, target: same, want: false},
		{name: "given same-origin on the same origin, then allows", mode: CredentialsSameOrigin, origin: origin, target: same, want: true},
		{name: "given same-origin on another origin, then denies", mode: CredentialsSameOrigin, origin: origin, target: other, want: false},
		{name: "given same-origin without a base url, then denies", mode: CredentialsSameOrigin, origin: nil, target: same, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowsCredentials(tt.mode, tt.origin, tt.target))
		})
	}
}
