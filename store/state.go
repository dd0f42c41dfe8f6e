package store

import "github.com/kroma-labs/smoelen/api"

// State is the shared state of one session.
type State struct {
	// Current is the item being viewed, or nil.
	Current *Writable[*api.Item]

	// Selected are the items marked for a bulk action.
	Selected *Writable[[]api.Item]

	User *UserStore
}

// NewState returns empty state with the user loaded from users.
func NewState(users UserFetcher) *State {
	return &State{
		Current:  NewWritable[*api.Item](nil),
		Selected: NewWritable[[]api.Item](nil),
		User:     NewUserStore(users),
	}
}
