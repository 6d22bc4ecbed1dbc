// ABOUTME: Controllable feed and stream fakes for chat transport tests
// ABOUTME: Counts fetches and records stream closes

package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/markalston/fntc-portal/internal/client"
)

type fakeStream struct {
	events chan *client.ChatEvent
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan *client.ChatEvent, 8), done: make(chan struct{})}
}

func (s *fakeStream) Next() (*client.ChatEvent, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-s.done:
		return nil, errors.New("stream closed")
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	return nil
}

type fakeFeed struct {
	listen      func(ctx context.Context) (Stream, error)
	listenCalls atomic.Int32
	fetchCalls  atomic.Int32
	fetchErr    atomic.Value

	mu       sync.Mutex
	messages []client.ChatMessage
}

func (f *fakeFeed) Listen(ctx context.Context, _ string) (Stream, error) {
	f.listenCalls.Add(1)
	return f.listen(ctx)
}

func (f *fakeFeed) LiveChat(_ context.Context, chatID string) (*client.LiveChat, error) {
	f.fetchCalls.Add(1)
	if err, ok := f.fetchErr.Load().(error); ok && err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &client.LiveChat{ID: chatID, Messages: append([]client.ChatMessage(nil), f.messages...)}, nil
}

// openWith returns a listen func that confirms immediately with s
func openWith(s Stream) func(context.Context) (Stream, error) {
	return func(context.Context) (Stream, error) { return s, nil }
}

// neverOpens blocks until the listen context is cancelled
func neverOpens(cancelled *atomic.Bool) func(context.Context) (Stream, error) {
	return func(ctx context.Context) (Stream, error) {
		<-ctx.Done()
		if cancelled != nil {
			cancelled.Store(true)
		}
		return nil, ctx.Err()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// modeRecorder collects OnModeChange transitions
type modeRecorder struct {
	mu    sync.Mutex
	modes []Mode
}

func (r *modeRecorder) record(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, m)
}

func (r *modeRecorder) seen(m Mode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.modes {
		if got == m {
			return true
		}
	}
	return false
}
