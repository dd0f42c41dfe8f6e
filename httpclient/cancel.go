package httpclient

import (
	"context"
	"sync"
)

// cancelRegistry tracks one cancellable handle per caller-chosen token.
//
// Tokens must be comparable. Two in-flight requests sharing a token share
// a handle, so cancelling the token cancels both. The handle stays
// registered until the last request holding it is released.
type cancelRegistry struct {
	mu      sync.Mutex
	handles map[any]*cancelHandle
}

type cancelHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{handles: make(map[any]*cancelHandle)}
}

// acquire returns the live handle for token, creating one if none exists.
// Every acquire must be paired with a release of the same handle.
func (r *cancelRegistry) acquire(token any) *cancelHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[token]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		h = &cancelHandle{ctx: ctx, cancel: cancel}
		r.handles[token] = h
	}
	h.refs++
	return h
}

// cancel signals and forgets the handle for token. It reports whether a
// handle existed.
func (r *cancelRegistry) cancel(token any) bool {
	r.mu.Lock()
	h, ok := r.handles[token]
	delete(r.handles, token)
	r.mu.Unlock()

	if ok {
		h.cancel()
	}
	return ok
}

// release drops one hold on h without signalling it. The token is
// forgotten once no request holds its handle; a handle already replaced
// after a cancel leaves the newer one alone.
func (r *cancelRegistry) release(token any, h *cancelHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.refs--
	if h.refs <= 0 && r.handles[token] == h {
		delete(r.handles, token)
	}
}

func (r *cancelRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// bind derives a context from parent that is also cancelled when tokenCtx
// is. The returned stop func must be called once the request completes.
func bind(parent, tokenCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(tokenCtx, func() {
		cancel(context.Cause(tokenCtx))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
