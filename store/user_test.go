package store_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/kroma-labs/smoelen/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsers(mock *httpclient.MockTransport) *api.UsersService {
	return api.New("http://api.local", "tok", httpclient.WithMockTransport(mock)).Users
}

func TestUserStore_Get(t *testing.T) {
	t.Run("given repeated calls, then the user is fetched once", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubJSON(http.StatusOK, api.User{ID: "u1", Admin: true})
		users := store.NewUserStore(newUsers(mock))

		for i := 0; i < 3; i++ {
			u, err := users.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, api.User{ID: "u1", Admin: true}, u)
		}
		assert.Equal(t, 1, mock.RequestCount())
		assert.Equal(t, "/users/me", mock.LastRequest().URL.Path)
	})

	t.Run("given concurrent callers, then they share one request", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		mock := httpclient.NewMockTransport().
			OnRequest(func(*http.Request) {
				once.Do(func() { close(entered) })
				<-release
			}).
			StubJSON(http.StatusOK, api.User{ID: "u1"})
		users := store.NewUserStore(newUsers(mock))

		var wg sync.WaitGroup
		ids := make(chan string, 10)
		get := func() {
			defer wg.Done()
			u, err := users.Get(context.Background())
			if err == nil {
				ids <- u.ID
			}
		}

		wg.Add(1)
		go get()
		<-entered
		for i := 0; i < 9; i++ {
			wg.Add(1)
			go get()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()
		close(ids)

		count := 0
		for id := range ids {
			assert.Equal(t, "u1", id)
			count++
		}
		assert.Equal(t, 10, count)
		assert.Equal(t, 1, mock.RequestCount())
	})

	t.Run("given a failure, then it is not cached", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubResponse(http.StatusUnauthorized, `{"detail":"expired"}`)
		users := store.NewUserStore(newUsers(mock))

		_, err := users.Get(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, httpclient.StatusCode(err))

		mock.Reset()
		mock.StubJSON(http.StatusOK, api.User{ID: "u2"})

		u, err := users.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u2", u.ID)
	})

	t.Run("given an unparsable user, then an error and nothing cached", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubResponse(http.StatusOK, `<html>maintenance</html>`)
		users := store.NewUserStore(newUsers(mock))

		_, err := users.Get(context.Background())
		require.Error(t, err)

		mock.Reset()
		mock.StubJSON(http.StatusOK, api.User{ID: "u3"})

		u, err := users.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u3", u.ID)
	})

	t.Run("given Reset, then the next Get fetches again", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubJSON(http.StatusOK, api.User{ID: "u1"})
		users := store.NewUserStore(newUsers(mock))

		_, err := users.Get(context.Background())
		require.NoError(t, err)
		users.Reset()
		_, err = users.Get(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, mock.RequestCount())
	})
}

type fakeUsers struct {
	err error
}

func (f fakeUsers) GetUser(context.Context, ...httpclient.RequestParams) (*httpclient.Response[api.User, any], error) {
	return nil, f.err
}

func TestNewState(t *testing.T) {
	boom := errors.New("offline")
	s := store.NewState(fakeUsers{err: boom})

	assert.Nil(t, s.Current.Get())
	assert.Empty(t, s.Selected.Get())

	item := api.Item{Type: api.ItemImage}
	s.Current.Set(&item)
	s.Selected.Update(func(items []api.Item) []api.Item { return append(items, item) })
	assert.Equal(t, &item, s.Current.Get())
	assert.Len(t, s.Selected.Get(), 1)

	_, err := s.User.Get(context.Background())
	assert.ErrorIs(t, err, boom)
}
