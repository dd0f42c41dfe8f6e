package httpclient

import (
	"context"
	"fmt"
)

// SecurityProvider produces request params (typically an Authorization
// header) for requests marked secure. It receives the value last stored
// with Client.SetSecurityData. Returning nil params adds nothing.
type SecurityProvider interface {
	Provide(ctx context.Context, data any) (*RequestParams, error)
}

// SecurityProviderFunc adapts a function to SecurityProvider.
type SecurityProviderFunc func(ctx context.Context, data any) (*RequestParams, error)

// Provide implements SecurityProvider.
func (f SecurityProviderFunc) Provide(ctx context.Context, data any) (*RequestParams, error) {
	return f(ctx, data)
}

// BearerSecurity returns a provider that treats the security data as a
// bearer token. Empty or nil data yields no params.
func BearerSecurity() SecurityProvider {
	return SecurityProviderFunc(func(_ context.Context, data any) (*RequestParams, error) {
		if data == nil {
			return nil, nil
		}
		token, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("bearer security: expected string token, got %T", data)
		}
		if token == "" {
			return nil, nil
		}
		return bearerParams(token), nil
	})
}

// BearerFuncSecurity returns a provider that fetches the token on every
// secure request, for tokens that may change underneath the client.
func BearerFuncSecurity(tokenFunc func(ctx context.Context) (string, error)) SecurityProvider {
	return SecurityProviderFunc(func(ctx context.Context, _ any) (*RequestParams, error) {
		token, err := tokenFunc(ctx)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, nil
		}
		return bearerParams(token), nil
	})
}

// BearerHeader returns the instance-level params that always send token.
func BearerHeader(token string) RequestParams {
	return *bearerParams(token)
}

func bearerParams(token string) *RequestParams {
	return &RequestParams{
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}
}
