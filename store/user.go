package store

import (
	"context"
	"sync"

	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"golang.org/x/sync/singleflight"
)

// UserFetcher loads the current user. *api.UsersService implements it.
type UserFetcher interface {
	GetUser(ctx context.Context, params ...httpclient.RequestParams) (*httpclient.Response[api.User, any], error)
}

// UserStore fetches the current user once and remembers it. Concurrent
// callers share one request; a failed request is not remembered.
type UserStore struct {
	users UserFetcher
	group singleflight.Group

	mu   sync.RWMutex
	user *api.User
}

// NewUserStore returns a store that loads the user from users.
func NewUserStore(users UserFetcher) *UserStore {
	return &UserStore{users: users}
}

// Get returns the current user, fetching it on first use.
func (s *UserStore) Get(ctx context.Context) (api.User, error) {
	s.mu.RLock()
	cached := s.user
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	v, err, _ := s.group.Do("me", func() (any, error) {
		resp, err := s.users.GetUser(ctx)
		if err != nil {
			return nil, err
		}
		user, err := resp.Result()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.user = &user
		s.mu.Unlock()
		return user, nil
	})
	if err != nil {
		return api.User{}, err
	}
	return v.(api.User), nil
}

// Reset forgets the user, for example after a logout.
func (s *UserStore) Reset() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}
